// Package tui provides the interactive terminal chart for stratowatch.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fentz26/stratowatch/internal/chart"
	"github.com/fentz26/stratowatch/internal/client"
	"go.uber.org/zap"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	presetStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	activePresetStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true).
				Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// Rows above the chart: header, rule, preset bar.
const headerRows = 3

// healthInterval is the cadence of daemon health checks.
const healthInterval = 5 * time.Second

// Options configures the App.
type Options struct {
	// Group restricts the chart to one compute group.
	Group        string
	Presets      []chart.Preset
	ActivePreset int
	PollInterval time.Duration
	Logger       *zap.Logger
}

// App is the main TUI application model.
type App struct {
	client  *client.Client
	ctrl    *chart.Controller
	slider  *chart.RangeSlider
	canvas  *Canvas
	help    help.Model
	logger  *zap.Logger
	group   string
	program *tea.Program

	ctx    context.Context
	cancel context.CancelFunc

	width        int
	height       int
	message      string
	daemonOnline bool
	version      string

	// Pointer drag on the slider track.
	grab       handle
	grabAnchor int64
	grabValue  chart.Window
}

// New creates a new TUI application.
func New(c *client.Client, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		client: c,
		slider: chart.NewRangeSlider(),
		canvas: NewCanvas(80, 20),
		help:   help.New(),
		logger: opts.Logger,
		group:  opts.Group,
		ctx:    ctx,
		cancel: cancel,
		width:  80,
		height: 24,
	}

	fetcher := c
	if opts.Group != "" {
		fetcher = c.ForGroup(opts.Group)
	}

	ctrl, err := chart.New(fetcher, a.canvas, a.slider, chart.Config{
		PollInterval: opts.PollInterval,
		Presets:      opts.Presets,
		ActivePreset: opts.ActivePreset,
		Logger:       opts.Logger,
		OnError:      func(err error) { a.send(errMsg{err}) },
	})
	if err != nil {
		cancel()
		return nil, err
	}
	a.ctrl = ctrl
	a.canvas.OnDraw(func() { a.send(redrawMsg{}) })
	return a, nil
}

// Run starts polling and the TUI, and blocks until the user quits.
func (a *App) Run() error {
	a.program = tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())

	a.ctrl.Start(a.ctx)
	defer a.ctrl.Stop()
	defer a.cancel()

	_, err := a.program.Run()
	return err
}

// send delivers msg to the running program without blocking the caller,
// which may hold the controller lock.
func (a *App) send(msg tea.Msg) {
	if a.program == nil {
		return
	}
	p := a.program
	go p.Send(msg)
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.checkDaemon()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.canvas.Resize(a.width, a.chartHeight())

	case redrawMsg:
		// The view reads the latest frame.

	case daemonStatusMsg:
		a.daemonOnline = msg.online
		if msg.health != nil {
			a.version = msg.health.Version
		}
		return a, tea.Tick(healthInterval, func(time.Time) tea.Msg { return healthTickMsg{} })

	case healthTickMsg:
		return a, a.checkDaemon()

	case statusMsg:
		a.message = msg.message

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		a.logger.Warn("tui error", zap.Error(msg.err))
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		a.cancel()
		return tea.Quit
	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, keys.PanLeft):
		a.nudge(func(step int64) { a.slider.Pan(-step) })
	case key.Matches(msg, keys.PanRight):
		a.nudge(func(step int64) { a.slider.Pan(step) })
	case key.Matches(msg, keys.MaxLeft):
		a.nudge(func(step int64) { a.slider.MoveMax(-step) })
	case key.Matches(msg, keys.MaxRight):
		a.nudge(func(step int64) { a.slider.MoveMax(step) })
	case key.Matches(msg, keys.MinLeft):
		a.nudge(func(step int64) { a.slider.MoveMin(-step) })
	case key.Matches(msg, keys.MinRight):
		a.nudge(func(step int64) { a.slider.MoveMin(step) })
	case key.Matches(msg, keys.Preset):
		return a.selectPreset(int(msg.String()[0] - '1'))
	case key.Matches(msg, keys.Follow):
		return a.followLive()
	case key.Matches(msg, keys.Refresh):
		return a.refresh()
	}
	return nil
}

// nudge moves the slider by a twentieth of its range, as one slide followed
// by a release.
func (a *App) nudge(move func(step int64)) {
	step := a.slider.Bounds().Width() / 20
	if step < 1000 {
		step = 1000
	}
	move(step)
	a.slider.Set()
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Type {
	case tea.MouseLeft:
		if msg.Y == headerRows-1 {
			if i := a.presetAt(msg.X); i >= 0 {
				return a.selectPreset(i)
			}
			return nil
		}
		if msg.Y != a.trackRow() {
			return nil
		}
		tr := a.track()
		value := a.slider.Value()
		a.grab = tr.hit(msg.X, value)
		a.grabAnchor = tr.colToTime(msg.X)
		a.grabValue = value
		a.dragTo(msg.X)

	case tea.MouseMotion:
		if a.grab != handleNone {
			a.dragTo(msg.X)
		}

	case tea.MouseRelease:
		if a.grab != handleNone {
			a.grab = handleNone
			a.slider.Set()
		}
	}
	return nil
}

func (a *App) dragTo(x int) {
	tr := a.track()
	t := tr.colToTime(x)
	v := a.grabValue

	switch a.grab {
	case handleMin:
		v.Min = t
	case handleMax:
		v.Max = t
	case handleBand:
		d := t - a.grabAnchor
		v.Min += d
		v.Max += d
		if v.Min < tr.bounds.Min {
			v.Max += tr.bounds.Min - v.Min
			v.Min = tr.bounds.Min
		}
		if v.Max > tr.bounds.Max {
			v.Min -= v.Max - tr.bounds.Max
			v.Max = tr.bounds.Max
		}
	default:
		return
	}
	a.slider.Slide(v)
}

func (a *App) selectPreset(i int) tea.Cmd {
	presets := a.ctrl.Presets()
	if i < 0 || i >= len(presets) {
		return nil
	}
	label := presets[i].Label
	return func() tea.Msg {
		if err := a.ctrl.SelectPreset(a.ctx, i); err != nil {
			return errMsg{err}
		}
		return statusMsg{fmt.Sprintf("Range: %s", label)}
	}
}

func (a *App) followLive() tea.Cmd {
	return func() tea.Msg {
		if err := a.ctrl.FollowLive(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg{"Following live edge"}
	}
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		if err := a.ctrl.Refresh(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg{"Refreshed"}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
		defer cancel()
		h, err := a.client.CheckHealth(ctx)
		return daemonStatusMsg{online: err == nil, health: h}
	}
}

// chartHeight is the canvas height: everything but the header, the slider
// track, the message line and the help line.
func (a *App) chartHeight() int {
	h := a.height - headerRows - 3
	if h < 4 {
		h = 4
	}
	return h
}

func (a *App) trackRow() int {
	return headerRows + a.chartHeight()
}

func (a *App) track() track {
	return track{
		x0:     yLabelWidth,
		width:  a.width - yLabelWidth,
		bounds: a.slider.Bounds(),
	}
}

// presetBar renders the preset buttons and returns the column span of each.
func (a *App) presetBar() (string, [][2]int) {
	presets := a.ctrl.Presets()
	active := a.ctrl.ActivePreset()

	var b strings.Builder
	spans := make([][2]int, len(presets))
	col := 1
	b.WriteString(" ")
	for i, p := range presets {
		label := p.Label
		if i < 9 {
			label = fmt.Sprintf("%d:%s", i+1, p.Label)
		}
		style := presetStyle
		if i == active {
			style = activePresetStyle
		}
		part := style.Render(label)
		w := lipgloss.Width(part)
		spans[i] = [2]int{col, col + w}
		col += w + 1
		b.WriteString(part + " ")
	}
	return b.String(), spans
}

func (a *App) presetAt(x int) int {
	_, spans := a.presetBar()
	for i, s := range spans {
		if x >= s[0] && x < s[1] {
			return i
		}
	}
	return -1
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("STRATOWATCH")
	header += "  " + daemonStatus
	if a.version != "" {
		header += " " + lipgloss.NewStyle().Foreground(mutedColor).Render(a.version)
	}
	scope := "all groups"
	if a.group != "" {
		scope = "group " + a.group
	}
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render("["+scope+"]")
	header += "  " + a.modeLabel()
	if drawn := a.canvas.LastDraw(); !drawn.IsZero() {
		header += "  " + lipgloss.NewStyle().Foreground(mutedColor).Render("updated "+humanize.Time(drawn))
	}

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", a.width) + "\n")

	bar, _ := a.presetBar()
	b.WriteString(bar + "\n")

	frame := a.canvas.Frame()
	if frame == "" {
		frame = "\n  Loading instance states..." + strings.Repeat("\n", a.chartHeight()-2)
	}
	b.WriteString(frame + "\n")

	b.WriteString(a.track().render(a.slider.Value(), a.grab != handleNone) + "\n")

	if a.message != "" {
		style := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			style = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(style.Render(a.message))
	}
	b.WriteString("\n")
	b.WriteString(a.help.View(keys))

	return b.String()
}

// modeLabel shows whether the window follows the live edge.
func (a *App) modeLabel() string {
	if a.ctrl.State() == chart.Dragging {
		return lipgloss.NewStyle().Foreground(warningColor).Render("◆ DRAGGING")
	}
	lastNow := a.ctrl.LastNow()
	if lastNow != 0 && a.ctrl.Window().Max == lastNow {
		return lipgloss.NewStyle().Foreground(successColor).Render("● LIVE")
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Render("❚❚ PINNED")
}
