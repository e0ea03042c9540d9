package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/stratowatch/internal/chart"
)

const yLabelWidth = 6

// Canvas renders stacked step-area charts with block characters. It
// implements chart.Renderer; every draw replaces the current frame and
// notifies the host.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	frame  string
	last   *canvasPlot
	drawn  time.Time
	onDraw func()
}

// NewCanvas creates a canvas of the given size in cells, axis labels included.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.width, c.height = clampSize(width, height)
	return c
}

// OnDraw registers f to be called after each frame is produced. f must not
// block.
func (c *Canvas) OnDraw(f func()) {
	c.mu.Lock()
	c.onDraw = f
	c.mu.Unlock()
}

// Resize changes the canvas size and redraws the last plot.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	c.width, c.height = clampSize(width, height)
	p := c.last
	c.mu.Unlock()

	if p != nil {
		p.Draw()
	}
}

// Frame returns the last rendered frame.
func (c *Canvas) Frame() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// LastDraw returns when the last frame was produced.
func (c *Canvas) LastDraw() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawn
}

// Plot implements chart.Renderer.
func (c *Canvas) Plot(series []chart.Series, opts chart.Options) (chart.Plot, error) {
	p := &canvasPlot{canvas: c, series: series, opts: opts}
	p.SetupGrid()
	if err := p.Draw(); err != nil {
		return nil, err
	}
	return p, nil
}

func clampSize(width, height int) (int, int) {
	if width < yLabelWidth+10 {
		width = yLabelWidth + 10
	}
	if height < 4 {
		height = 4
	}
	return width, height
}

type canvasPlot struct {
	canvas *Canvas
	series []chart.Series
	opts   chart.Options
	window chart.Window
}

func (p *canvasPlot) SetXRange(min, max int64) {
	p.canvas.mu.Lock()
	defer p.canvas.mu.Unlock()
	p.opts.XAxis.Min = min
	p.opts.XAxis.Max = max
}

func (p *canvasPlot) SetupGrid() {
	p.canvas.mu.Lock()
	defer p.canvas.mu.Unlock()
	p.window = chart.Window{Min: p.opts.XAxis.Min, Max: p.opts.XAxis.Max}
	if p.window.Max <= p.window.Min {
		p.window.Max = p.window.Min + 1
	}
}

func (p *canvasPlot) Draw() error {
	c := p.canvas
	c.mu.Lock()
	frame := renderFrame(p.series, p.opts, p.window, c.width, c.height)
	c.frame = frame
	c.last = p
	c.drawn = time.Now()
	notify := c.onDraw
	c.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// valueAt returns the step value of s at t: the value of the last point at
// or before t. ok is false before the first point.
func valueAt(s chart.Series, t int64) (v int, ok bool) {
	for _, pt := range s.Points {
		if pt.T > t {
			break
		}
		v, ok = pt.V, true
	}
	return v, ok
}

// renderFrame draws the legend line, the plot body, and the time axis.
func renderFrame(series []chart.Series, opts chart.Options, w chart.Window, width, height int) string {
	plotW := width - yLabelWidth
	bodyH := height - 2

	// Cumulative top of each series per column.
	tops := make([][]int, len(series))
	maxY := 0
	for i := range series {
		tops[i] = make([]int, plotW)
	}
	for x := 0; x < plotW; x++ {
		t := w.Min + (w.Width()*int64(2*x+1))/int64(2*plotW)
		acc := 0
		for i, s := range series {
			v, ok := valueAt(s, t)
			if !ok {
				tops[i][x] = -1
				continue
			}
			if opts.Stack {
				acc += v
				tops[i][x] = acc
			} else {
				tops[i][x] = v
			}
			if tops[i][x] > maxY {
				maxY = tops[i][x]
			}
		}
	}
	if maxY < opts.YAxis.Min+1 {
		maxY = opts.YAxis.Min + 1
	}

	styles := make([]lipgloss.Style, len(series))
	for i, s := range series {
		styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color))
	}

	var b strings.Builder
	b.WriteString(legend(series, styles))
	b.WriteString("\n")

	for row := 0; row < bodyH; row++ {
		// Value at the middle of this row, counting from the bottom.
		level := float64(bodyH-row) - 0.5
		label := ""
		switch row {
		case 0:
			label = fmt.Sprintf("%d", maxY)
		case bodyH - 1:
			label = fmt.Sprintf("%d", opts.YAxis.Min)
		case bodyH / 2:
			label = fmt.Sprintf("%d", maxY/2)
		}
		b.WriteString(fmt.Sprintf("%*s ", yLabelWidth-1, label))

		for x := 0; x < plotW; x++ {
			cell := -1
			for i := range series {
				top := tops[i][x]
				if top < 0 {
					continue
				}
				if float64(top)*float64(bodyH)/float64(maxY) >= level {
					cell = i
					break
				}
			}
			if cell < 0 || !opts.Fill && !onEdge(tops[cell][x], level, bodyH, maxY) {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(styles[cell].Render("█"))
		}
		b.WriteString("\n")
	}

	b.WriteString(timeAxis(w, opts.XAxis, plotW))
	return b.String()
}

func onEdge(top int, level float64, bodyH, maxY int) bool {
	return float64(top)*float64(bodyH)/float64(maxY) < level+1
}

func legend(series []chart.Series, styles []lipgloss.Style) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		v := "-"
		if last, ok := s.Last(); ok {
			v = fmt.Sprintf("%d", last.V)
		}
		parts = append(parts, styles[i].Render("■")+" "+s.Label+" "+v)
	}
	return strings.Repeat(" ", yLabelWidth) + strings.Join(parts, "   ")
}

// timeAxis places the window's start, middle and end times under the plot.
func timeAxis(w chart.Window, axis chart.XAxis, plotW int) string {
	loc := time.Local
	if strings.EqualFold(axis.Timezone, "utc") {
		loc = time.UTC
	}
	layout := "15:04:05"
	if axis.TwelveHourClock {
		layout = "3:04:05 PM"
	}
	if time.Duration(w.Width())*time.Millisecond > 24*time.Hour {
		layout = "Jan 2 " + layout
	}

	format := func(ms int64) string {
		return time.UnixMilli(ms).In(loc).Format(layout)
	}
	left := format(w.Min)
	mid := format(w.Min + w.Width()/2)
	right := format(w.Max)

	line := []rune(strings.Repeat(" ", plotW))
	put := func(s string, at int) {
		r := []rune(s)
		if at < 0 {
			at = 0
		}
		if at+len(r) > len(line) {
			at = len(line) - len(r)
		}
		if at < 0 {
			return
		}
		copy(line[at:], r)
	}
	put(left, 0)
	if plotW > 3*len(left)+4 {
		put(mid, plotW/2-len(mid)/2)
	}
	put(right, plotW-len(right))

	return strings.Repeat(" ", yLabelWidth) + string(line)
}
