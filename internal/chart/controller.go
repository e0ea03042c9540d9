package chart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/stratowatch/internal/models"
	"go.uber.org/zap"
)

// DefaultPollInterval is the cadence at which fresh history is fetched.
const DefaultPollInterval = 3 * time.Second

// Fetcher retrieves state history. A nil limitSec means the whole history.
type Fetcher interface {
	FetchHistory(ctx context.Context, limitSec *int) ([]Snapshot, error)
}

// Config configures a Controller.
type Config struct {
	PollInterval time.Duration
	// Presets defaults to a single unbounded preset.
	Presets      []Preset
	ActivePreset int
	// Now returns the wall clock. Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
	// OnError is called with fetch and render failures from the poll loop.
	OnError func(error)
}

// Controller polls a Fetcher and keeps a Renderer's plot and a Slider in sync
// with the fetched history and the user's window selection.
//
// All state transitions happen under a single mutex, so poll ticks, preset
// selections and slider events can arrive from any goroutine.
type Controller struct {
	fetcher  Fetcher
	renderer Renderer
	slider   Slider
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	onError  func(error)

	mu      sync.Mutex
	presets *PresetGroup
	policy  WindowPolicy
	state   DragState
	plot    Plot
	series  []Series
	window  Window
	data    []Snapshot
	// gen increments on every preset selection so that poll results fetched
	// under an older limit are dropped.
	gen uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a controller. If the slider supports Subscribe the controller
// registers itself for its events.
func New(f Fetcher, r Renderer, s Slider, cfg Config) (*Controller, error) {
	if f == nil {
		return nil, ErrNilFetcher
	}
	if r == nil {
		return nil, ErrNilRenderer
	}
	if s == nil {
		return nil, ErrNilSlider
	}

	group, err := NewPresetGroup(cfg.Presets, cfg.ActivePreset)
	if err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Controller{
		fetcher:  f,
		renderer: r,
		slider:   s,
		interval: cfg.PollInterval,
		now:      cfg.Now,
		logger:   cfg.Logger,
		onError:  cfg.OnError,
		presets:  group,
	}

	if sub, ok := s.(interface{ Subscribe(RangeObserver) }); ok {
		sub.Subscribe(c)
	}
	return c, nil
}

// Start begins polling in the background. The first fetch happens
// immediately. Ticks never overlap: a slow fetch delays the next one.
func (c *Controller) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.Debug("chart polling started", zap.Duration("interval", c.interval))
}

// Stop cancels polling and waits for an in-flight tick to finish.
func (c *Controller) Stop() {
	c.runMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	c.logger.Debug("chart polling stopped")
}

func (c *Controller) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.logger.Warn("chart refresh failed", zap.Error(err))
		if c.onError != nil {
			c.onError(err)
		}
	}
}

// Refresh fetches history with the active preset's limit and redraws, unless
// the user is dragging the slider.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	limit := c.presets.Limit()
	gen := c.gen
	c.mu.Unlock()

	data, err := c.fetcher.FetchHistory(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if c.state == Dragging {
		return nil
	}
	return c.apply(data, false)
}

// SelectPreset activates presets[i], fetches with its limit and redraws with
// the window reset to the full fetched range. It draws even while the user
// is dragging.
func (c *Controller) SelectPreset(ctx context.Context, i int) error {
	c.mu.Lock()
	if _, err := c.presets.Select(i); err != nil {
		c.mu.Unlock()
		return err
	}
	c.policy.MarkRangeChanged()
	c.gen++
	limit := c.presets.Limit()
	gen := c.gen
	c.mu.Unlock()

	data, err := c.fetcher.FetchHistory(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	return c.apply(data, true)
}

// FollowLive snaps the window's max back to the live edge and refreshes, so
// subsequent polls advance it again.
func (c *Controller) FollowLive(ctx context.Context) error {
	c.mu.Lock()
	lastNow := c.policy.LastNow()
	if lastNow != 0 {
		v := c.slider.Value()
		v.Max = lastNow
		c.slider.Reset(c.slider.Bounds(), v)
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// apply renders data. Callers hold c.mu.
func (c *Controller) apply(data []Snapshot, filterChanged bool) error {
	if filterChanged {
		c.policy.MarkRangeChanged()
	}

	now := models.UnixMillis(c.now())
	series := BuildSeries(data, now)
	w := c.policy.Resolve(c.slider.Value(), data, now)

	plot, err := c.renderer.Plot(series, DefaultOptions(w))
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	c.plot = plot
	c.series = series
	c.window = w
	c.data = data

	if len(data) > 0 {
		c.slider.Reset(Window{Min: data[0].Time, Max: now}, w)
	}
	return nil
}

// OnRangeChange redraws the existing plot for the slider's window without
// fetching and marks the slider as being dragged.
func (c *Controller) OnRangeChange(w Window) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Dragging
	c.window = w
	if c.plot == nil {
		return
	}
	c.plot.SetXRange(w.Min, w.Max)
	c.plot.SetupGrid()
	if err := c.plot.Draw(); err != nil {
		c.logger.Warn("redraw failed", zap.Error(err))
	}
}

// OnRangeCommit ends a drag. Polls resume drawing from the next tick.
func (c *Controller) OnRangeCommit(w Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	c.window = w
}

// State returns the slider interaction state.
func (c *Controller) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Window returns the window of the last draw.
func (c *Controller) Window() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Series returns the series of the last data-driven draw.
func (c *Controller) Series() []Series {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Series(nil), c.series...)
}

// Data returns the snapshots of the last data-driven draw.
func (c *Controller) Data() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot(nil), c.data...)
}

// Plot returns the current plot or ErrNoPlot.
func (c *Controller) Plot() (Plot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plot == nil {
		return nil, ErrNoPlot
	}
	return c.plot, nil
}

// Presets returns the configured presets.
func (c *Controller) Presets() []Preset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presets.Presets()
}

// ActivePreset returns the index of the active preset.
func (c *Controller) ActivePreset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presets.Active()
}

// LastNow returns the "now" of the last data-driven draw.
func (c *Controller) LastNow() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.LastNow()
}
