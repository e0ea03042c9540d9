package chart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeFetcher struct {
	mu     sync.Mutex
	data   []Snapshot
	err    error
	limits []*int
}

func (f *fakeFetcher) FetchHistory(ctx context.Context, limitSec *int) ([]Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limitSec)
	if f.err != nil {
		return nil, f.err
	}
	return append([]Snapshot(nil), f.data...), nil
}

func (f *fakeFetcher) set(data []Snapshot) {
	f.mu.Lock()
	f.data = data
	f.mu.Unlock()
}

type fakePlot struct {
	opts   Options
	ranges []Window
	draws  int
}

func (p *fakePlot) SetXRange(min, max int64) {
	p.ranges = append(p.ranges, Window{Min: min, Max: max})
}

func (p *fakePlot) SetupGrid() {}

func (p *fakePlot) Draw() error {
	p.draws++
	return nil
}

type fakeRenderer struct {
	plots []*fakePlot
	err   error
}

func (r *fakeRenderer) Plot(series []Series, opts Options) (Plot, error) {
	if r.err != nil {
		return nil, r.err
	}
	p := &fakePlot{opts: opts}
	r.plots = append(r.plots, p)
	return p, nil
}

func (r *fakeRenderer) last() *fakePlot {
	if len(r.plots) == 0 {
		return nil
	}
	return r.plots[len(r.plots)-1]
}

type clock struct {
	ms int64
}

func (c *clock) now() time.Time {
	return time.UnixMilli(c.ms)
}

func newTestController(t *testing.T, f *fakeFetcher, clk *clock) (*Controller, *fakeRenderer, *RangeSlider) {
	t.Helper()
	r := &fakeRenderer{}
	s := NewRangeSlider()
	c, err := New(f, r, s, Config{
		Presets:      DefaultPresets(),
		ActivePreset: 4,
		Now:          clk.now,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, r, s
}

func TestBuildSeries(t *testing.T) {
	data := []Snapshot{
		{Time: 100, Running: 1, Pending: 2, Failed: 0},
		{Time: 200, Running: 3, Pending: 0, Failed: 1},
	}
	series := BuildSeries(data, 1000)

	if len(series) != 3 {
		t.Fatalf("Expected 3 series, got %d", len(series))
	}
	for _, s := range series {
		if len(s.Points) != len(data)+1 {
			t.Errorf("%s: expected %d points, got %d", s.Label, len(data)+1, len(s.Points))
		}
		last, _ := s.Last()
		if last.T != 1000 {
			t.Errorf("%s: expected edge point at 1000, got %d", s.Label, last.T)
		}
	}

	if got := series[Running].Points[2].V; got != 3 {
		t.Errorf("Expected running edge 3, got %d", got)
	}
	if got := series[Pending].Points[2].V; got != 0 {
		t.Errorf("Expected pending edge 0, got %d", got)
	}
	if got := series[Failed].Points[2].V; got != 1 {
		t.Errorf("Expected failed edge 1, got %d", got)
	}
	if series[Failed].Color != "#d9534f" {
		t.Errorf("Unexpected failed color %s", series[Failed].Color)
	}
}

func TestBuildSeriesEmpty(t *testing.T) {
	series := BuildSeries(nil, 1000)
	for _, s := range series {
		if len(s.Points) != 0 {
			t.Errorf("%s: expected no points, got %d", s.Label, len(s.Points))
		}
	}
}

func TestStack(t *testing.T) {
	series := BuildSeries([]Snapshot{{Time: 1, Running: 2, Pending: 3, Failed: 4}}, 5)
	tops := Stack(series)
	if tops[Failed][0] != 9 || tops[Pending][0] != 5 || tops[Running][0] != 2 {
		t.Errorf("Unexpected stack tops: %v", tops)
	}
}

func TestWindowPolicyResolve(t *testing.T) {
	data := []Snapshot{{Time: 100}, {Time: 200}}

	tests := []struct {
		name    string
		current Window
		lastNow int64
		changed bool
		now     int64
		want    Window
	}{
		{"never set", Window{0, 10}, 0, false, 1000, Window{100, 1000}},
		{"follows live edge", Window{150, 1000}, 1000, false, 1300, Window{150, 1300}},
		{"panned stays", Window{150, 500}, 1000, false, 1300, Window{150, 500}},
		{"range changed", Window{150, 500}, 1000, true, 1300, Window{100, 1300}},
		{"clock behind first snapshot", Window{0, 10}, 0, false, 50, Window{50, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := WindowPolicy{lastNow: tt.lastNow, rangeChanged: tt.changed}
			got := p.Resolve(tt.current, data, tt.now)
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
			if p.RangeChanged() {
				t.Error("Expected range-changed flag to be cleared")
			}
			if p.LastNow() != tt.now {
				t.Errorf("Expected lastNow %d, got %d", tt.now, p.LastNow())
			}
		})
	}
}

func TestWindowPolicyEmptyData(t *testing.T) {
	var p WindowPolicy
	got := p.Resolve(Window{0, 10}, nil, 1000)
	if got.Max != 1000 || got.Min > got.Max {
		t.Errorf("Unexpected window %+v", got)
	}
}

func TestPresetGroup(t *testing.T) {
	g, err := NewPresetGroup(DefaultPresets(), 0)
	if err != nil {
		t.Fatalf("NewPresetGroup failed: %v", err)
	}

	if _, err := g.Select(4); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	active := 0
	for i := range g.Presets() {
		if g.IsActive(i) {
			active++
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly one active preset, got %d", active)
	}
	if g.Limit() != nil {
		t.Error("Expected unbounded limit for All")
	}

	if _, err := g.Select(9); !errors.Is(err, ErrPresetIndex) {
		t.Errorf("Expected ErrPresetIndex, got %v", err)
	}
	if g.Active() != 4 {
		t.Errorf("Failed select changed active preset to %d", g.Active())
	}

	empty, err := NewPresetGroup(nil, 0)
	if err != nil {
		t.Fatalf("NewPresetGroup(nil) failed: %v", err)
	}
	if len(empty.Presets()) != 1 || empty.Limit() != nil {
		t.Error("Expected a single unbounded preset")
	}
}

func TestRangeSliderClamp(t *testing.T) {
	s := NewRangeSlider()
	s.Reset(Window{100, 1000}, Window{100, 1000})

	got := s.Slide(Window{50, 2000})
	if got != (Window{100, 1000}) {
		t.Errorf("Expected clamp to bounds, got %+v", got)
	}

	got = s.Slide(Window{800, 300})
	if got != (Window{300, 800}) {
		t.Errorf("Expected swapped handles, got %+v", got)
	}

	got = s.Pan(500)
	if got != (Window{500, 1000}) {
		t.Errorf("Expected pan to stop at max bound, got %+v", got)
	}
}

func TestControllerFirstRefresh(t *testing.T) {
	f := &fakeFetcher{data: []Snapshot{{Time: 100, Running: 1}, {Time: 200, Running: 2}}}
	clk := &clock{ms: 1000}
	c, r, s := newTestController(t, f, clk)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	want := Window{100, 1000}
	if got := c.Window(); got != want {
		t.Errorf("Expected window %+v, got %+v", want, got)
	}
	p := r.last()
	if p == nil {
		t.Fatal("Expected a plot")
	}
	if p.opts.XAxis.Min != 100 || p.opts.XAxis.Max != 1000 {
		t.Errorf("Unexpected axis %+v", p.opts.XAxis)
	}
	if s.Bounds() != want || s.Value() != want {
		t.Errorf("Slider not reset: bounds %+v value %+v", s.Bounds(), s.Value())
	}
	for _, series := range c.Series() {
		if len(series.Points) != 3 {
			t.Errorf("%s: expected 3 points, got %d", series.Label, len(series.Points))
		}
	}
}

func TestControllerAutoFollow(t *testing.T) {
	f := &fakeFetcher{data: []Snapshot{{Time: 100}, {Time: 200}}}
	clk := &clock{ms: 1000}
	c, _, s := newTestController(t, f, clk)
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	s.MoveMin(50)
	s.Set()

	clk.ms = 1300
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := c.Window(); got != (Window{150, 1300}) {
		t.Errorf("Expected window to follow now, got %+v", got)
	}
}

func TestControllerPannedWindowStays(t *testing.T) {
	f := &fakeFetcher{data: []Snapshot{{Time: 100}, {Time: 200}}}
	clk := &clock{ms: 1000}
	c, _, s := newTestController(t, f, clk)
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	s.Slide(Window{150, 500})
	s.Set()

	clk.ms = 1300
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := c.Window(); got != (Window{150, 500}) {
		t.Errorf("Expected panned window to stay, got %+v", got)
	}

	if err := c.FollowLive(ctx); err != nil {
		t.Fatalf("FollowLive failed: %v", err)
	}
	if got := c.Window(); got.Max != 1300 {
		t.Errorf("Expected FollowLive to snap max to now, got %+v", got)
	}
}

func TestControllerDragSuppressesPoll(t *testing.T) {
	f := &fakeFetcher{data: []Snapshot{{Time: 100}, {Time: 200}}}
	clk := &clock{ms: 1000}
	c, r, s := newTestController(t, f, clk)
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	plot := r.last()

	s.Slide(Window{300, 600})
	if c.State() != Dragging {
		t.Fatalf("Expected dragging, got %s", c.State())
	}
	if len(plot.ranges) != 1 || plot.ranges[0] != (Window{300, 600}) || plot.draws != 1 {
		t.Errorf("Expected one redraw at the slid range, got ranges %v draws %d", plot.ranges, plot.draws)
	}

	clk.ms = 2000
	f.set([]Snapshot{{Time: 100}, {Time: 200}, {Time: 1500}})
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(r.plots) != 1 {
		t.Errorf("Expected poll during drag to skip rendering, got %d plots", len(r.plots))
	}
	if got := c.Window(); got != (Window{300, 600}) {
		t.Errorf("Expected window unchanged during drag, got %+v", got)
	}

	s.Set()
	if c.State() != Idle {
		t.Errorf("Expected idle after commit, got %s", c.State())
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(r.plots) != 2 {
		t.Errorf("Expected poll after commit to render, got %d plots", len(r.plots))
	}
}

func TestControllerSelectPreset(t *testing.T) {
	f := &fakeFetcher{data: []Snapshot{{Time: 100}, {Time: 200}}}
	clk := &clock{ms: 1000}
	c, r, s := newTestController(t, f, clk)
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	s.Slide(Window{150, 500})

	f.set([]Snapshot{{Time: 400}, {Time: 900}})
	clk.ms = 1200
	if err := c.SelectPreset(ctx, 0); err != nil {
		t.Fatalf("SelectPreset failed: %v", err)
	}

	if c.ActivePreset() != 0 {
		t.Errorf("Expected preset 0 active, got %d", c.ActivePreset())
	}
	if len(r.plots) != 2 {
		t.Errorf("Expected preset selection to render while dragging, got %d plots", len(r.plots))
	}
	if got := c.Window(); got != (Window{400, 1200}) {
		t.Errorf("Expected window reset to fetched range, got %+v", got)
	}

	f.mu.Lock()
	last := f.limits[len(f.limits)-1]
	f.mu.Unlock()
	if last == nil || *last != 3600 {
		t.Errorf("Expected fetch with 3600s limit, got %v", last)
	}

	if err := c.SelectPreset(ctx, 42); !errors.Is(err, ErrPresetIndex) {
		t.Errorf("Expected ErrPresetIndex, got %v", err)
	}
}

func TestControllerErrors(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	clk := &clock{ms: 1000}
	c, _, _ := newTestController(t, f, clk)

	if err := c.Refresh(context.Background()); err == nil {
		t.Error("Expected fetch error")
	}
	if _, err := c.Plot(); !errors.Is(err, ErrNoPlot) {
		t.Errorf("Expected ErrNoPlot, got %v", err)
	}

	if _, err := New(nil, &fakeRenderer{}, NewRangeSlider(), Config{}); !errors.Is(err, ErrNilFetcher) {
		t.Errorf("Expected ErrNilFetcher, got %v", err)
	}
}

func TestControllerStartStop(t *testing.T) {
	f := &fakeFetcher{data: []Snapshot{{Time: 100}}}
	r := &fakeRenderer{}
	c, err := New(f, r, NewRangeSlider(), Config{PollInterval: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := c.Plot(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected an immediate first fetch")
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Stop()
	c.Stop()
}
