package chart

// Renderer draws series as a plot and returns a handle for live updates.
type Renderer interface {
	Plot(series []Series, opts Options) (Plot, error)
}

// Plot is a drawn chart that can be re-ranged without new data.
type Plot interface {
	// SetXRange changes the x-axis bounds used by the next SetupGrid.
	SetXRange(min, max int64)
	// SetupGrid recomputes axes and ticks.
	SetupGrid()
	// Draw repaints the plot.
	Draw() error
}

// XAxis configures the time axis.
type XAxis struct {
	Mode            string
	Min             int64
	Max             int64
	TickLength      int
	Timezone        string
	TwelveHourClock bool
	AutoscaleMargin float64
}

// YAxis configures the count axis.
type YAxis struct {
	Min             int
	TickDecimals    int
	TickLength      int
	AutoscaleMargin float64
}

// Legend configures the series legend.
type Legend struct {
	Position string
}

// Grid configures the plot frame.
type Grid struct {
	BorderWidth     int
	MinBorderMargin int
	Margin          int
}

// Options describes how a plot is drawn.
type Options struct {
	XAxis  XAxis
	YAxis  YAxis
	Stack  bool
	Fill   bool
	Steps  bool
	Legend Legend
	Grid   Grid
}

// DefaultOptions returns the stacked, filled, step-interpolated area chart
// configuration for window w.
func DefaultOptions(w Window) Options {
	return Options{
		XAxis: XAxis{
			Mode:            "time",
			Min:             w.Min,
			Max:             w.Max,
			TickLength:      0,
			Timezone:        "local",
			TwelveHourClock: true,
			AutoscaleMargin: 0,
		},
		YAxis: YAxis{
			Min:             0,
			TickDecimals:    0,
			TickLength:      0,
			AutoscaleMargin: 0,
		},
		Stack:  true,
		Fill:   true,
		Steps:  true,
		Legend: Legend{Position: "nw"},
		Grid: Grid{
			BorderWidth:     0,
			MinBorderMargin: 0,
			Margin:          0,
		},
	}
}
