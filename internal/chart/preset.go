package chart

import "fmt"

// Preset is a selectable lookback duration. A nil Seconds means the whole
// history.
type Preset struct {
	Label   string `yaml:"label"`
	Seconds *int   `yaml:"seconds,omitempty"`
}

// DefaultPresets returns the presets offered when none are configured.
func DefaultPresets() []Preset {
	return []Preset{
		{Label: "1h", Seconds: seconds(3600)},
		{Label: "6h", Seconds: seconds(6 * 3600)},
		{Label: "1d", Seconds: seconds(24 * 3600)},
		{Label: "1w", Seconds: seconds(7 * 24 * 3600)},
		{Label: "All"},
	}
}

func seconds(n int) *int {
	return &n
}

// PresetGroup is a set of mutually exclusive presets with exactly one active.
type PresetGroup struct {
	presets []Preset
	active  int
}

// NewPresetGroup creates a group with presets[active] selected. An empty list
// becomes a single unbounded "All" preset.
func NewPresetGroup(presets []Preset, active int) (*PresetGroup, error) {
	if len(presets) == 0 {
		presets = []Preset{{Label: "All"}}
	}
	if active < 0 || active >= len(presets) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPresetIndex, active, len(presets))
	}
	return &PresetGroup{
		presets: append([]Preset(nil), presets...),
		active:  active,
	}, nil
}

// Select deactivates the current preset and activates presets[i].
func (g *PresetGroup) Select(i int) (Preset, error) {
	if i < 0 || i >= len(g.presets) {
		return Preset{}, fmt.Errorf("%w: %d of %d", ErrPresetIndex, i, len(g.presets))
	}
	g.active = i
	return g.presets[i], nil
}

// Active returns the index of the active preset.
func (g *PresetGroup) Active() int {
	return g.active
}

// IsActive reports whether presets[i] is the active one.
func (g *PresetGroup) IsActive(i int) bool {
	return i == g.active
}

// Presets returns a copy of the presets.
func (g *PresetGroup) Presets() []Preset {
	return append([]Preset(nil), g.presets...)
}

// Limit returns the active lookback in seconds, nil when unbounded.
func (g *PresetGroup) Limit() *int {
	s := g.presets[g.active].Seconds
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
