// Package render draws instance-state charts to PNG or SVG images.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fentz26/stratowatch/internal/chart"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat maps a file extension or name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", fmt.Errorf("no extension in %q", path)
	}
	return ParseFormat(path[i+1:])
}

// Renderer draws plots as images. Every Draw opens a fresh writer from Open.
type Renderer struct {
	Format Format
	Width  int
	Height int
	Title  string
	Open   func() (io.WriteCloser, error)
}

// NewFileRenderer returns a renderer that overwrites path on every draw.
func NewFileRenderer(path string, format Format, width, height int) *Renderer {
	return &Renderer{
		Format: format,
		Width:  width,
		Height: height,
		Open: func() (io.WriteCloser, error) {
			return os.Create(path)
		},
	}
}

// Plot draws series immediately and returns a handle for re-ranging.
func (r *Renderer) Plot(series []chart.Series, opts chart.Options) (chart.Plot, error) {
	p := &Plot{renderer: r, series: series, opts: opts}
	p.SetupGrid()
	if err := p.Draw(); err != nil {
		return nil, err
	}
	return p, nil
}

// Plot is a drawn image chart.
type Plot struct {
	renderer *Renderer
	series   []chart.Series
	opts     chart.Options
	graph    gochart.Chart
}

// SetXRange changes the x-axis bounds.
func (p *Plot) SetXRange(min, max int64) {
	p.opts.XAxis.Min = min
	p.opts.XAxis.Max = max
}

// SetupGrid rebuilds the chart for the current options.
func (p *Plot) SetupGrid() {
	p.graph = Build(p.series, p.opts, p.renderer.Width, p.renderer.Height)
	p.graph.Title = p.renderer.Title
}

// Draw renders the chart to a new writer.
func (p *Plot) Draw() error {
	if p.renderer.Open == nil {
		return fmt.Errorf("renderer has no output")
	}
	w, err := p.renderer.Open()
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if err := Write(w, p.graph, p.renderer.Format); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Write renders a built chart to w.
func Write(w io.Writer, graph gochart.Chart, format Format) error {
	provider := gochart.PNG
	if format == SVG {
		provider = gochart.SVG
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return nil
}

// Build lays out series as a go-chart chart according to opts. Stacked
// series are drawn top-down so that each filled area covers the ones above
// it only where it is taller.
func Build(series []chart.Series, opts chart.Options, width, height int) gochart.Chart {
	w := chart.Window{Min: opts.XAxis.Min, Max: opts.XAxis.Max}
	if w.Max <= w.Min {
		w.Max = w.Min + 1
	}

	tops := make([][]int, len(series))
	if opts.Stack {
		tops = chart.Stack(series)
	} else {
		for i, s := range series {
			tops[i] = make([]int, len(s.Points))
			for j, pt := range s.Points {
				tops[i][j] = pt.V
			}
		}
	}

	maxY := 0
	var drawn []gochart.Series
	for i := len(series) - 1; i >= 0; i-- {
		s := series[i]
		pts := make([]chart.Point, len(s.Points))
		for j, pt := range s.Points {
			pts[j] = chart.Point{T: pt.T, V: tops[i][j]}
		}
		if opts.Steps {
			pts = steps(pts)
		}
		pts = clip(pts, w)
		if len(pts) == 0 {
			continue
		}

		ts := gochart.TimeSeries{Name: s.Label, Style: seriesStyle(s.Color, opts.Fill)}
		for _, pt := range pts {
			ts.XValues = append(ts.XValues, time.UnixMilli(pt.T))
			ts.YValues = append(ts.YValues, float64(pt.V))
			if pt.V > maxY {
				maxY = pt.V
			}
		}
		// go-chart needs at least two x values per series.
		if len(ts.XValues) == 1 {
			ts.XValues = append(ts.XValues, time.UnixMilli(w.Max))
			ts.YValues = append(ts.YValues, ts.YValues[0])
		}
		drawn = append(drawn, ts)
	}

	showLegend := opts.Legend.Position != "" && len(drawn) > 0
	if len(drawn) == 0 {
		drawn = append(drawn, gochart.TimeSeries{
			Style:   gochart.Style{StrokeColor: drawing.ColorFromHex("777777"), StrokeWidth: 1},
			XValues: []time.Time{time.UnixMilli(w.Min), time.UnixMilli(w.Max)},
			YValues: []float64{0, 0},
		})
	}

	loc := location(opts.XAxis.Timezone)
	yTicks := countTicks(maxY, opts.YAxis.Min)

	graph := gochart.Chart{
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 20, Left: 16, Right: 16, Bottom: 12},
		},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{
				Min: gochart.TimeToFloat64(time.UnixMilli(w.Min)),
				Max: gochart.TimeToFloat64(time.UnixMilli(w.Max)),
			},
			Ticks: timeTicks(w, loc, opts.XAxis.TwelveHourClock),
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: float64(opts.YAxis.Min), Max: yTicks[len(yTicks)-1].Value},
			Ticks: yTicks,
		},
		Series: drawn,
	}
	if showLegend {
		graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}
	}
	return graph
}

func seriesStyle(hex string, fill bool) gochart.Style {
	col := drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	st := gochart.Style{
		StrokeColor: col,
		StrokeWidth: 1,
	}
	if fill {
		st.FillColor = col.WithAlpha(200)
	}
	return st
}

// steps turns a polyline into a staircase: each value holds until the next
// sample's time.
func steps(pts []chart.Point) []chart.Point {
	if len(pts) < 2 {
		return pts
	}
	out := make([]chart.Point, 0, 2*len(pts)-1)
	for i, pt := range pts {
		if i > 0 {
			out = append(out, chart.Point{T: pt.T, V: pts[i-1].V})
		}
		out = append(out, pt)
	}
	return out
}

// clip restricts a staircase to w. The value at w.Min is the last value at or
// before it, and the last value inside w extends to w.Max when the data does.
func clip(pts []chart.Point, w chart.Window) []chart.Point {
	var out []chart.Point
	var before *chart.Point
	beyond := false
	for i := range pts {
		pt := pts[i]
		switch {
		case pt.T < w.Min:
			before = &pts[i]
		case pt.T <= w.Max:
			if before != nil && len(out) == 0 && pt.T > w.Min {
				out = append(out, chart.Point{T: w.Min, V: before.V})
			}
			out = append(out, pt)
		default:
			beyond = true
		}
	}
	if len(out) == 0 {
		if before == nil || !beyond {
			return nil
		}
		return []chart.Point{{T: w.Min, V: before.V}, {T: w.Max, V: before.V}}
	}
	if last := out[len(out)-1]; beyond && last.T < w.Max {
		out = append(out, chart.Point{T: w.Max, V: last.V})
	}
	return out
}

func location(tz string) *time.Location {
	switch strings.ToLower(tz) {
	case "", "local", "browser":
		return time.Local
	case "utc":
		return time.UTC
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc
	}
	return time.Local
}

// timeTicks places up to six labels across w.
func timeTicks(w chart.Window, loc *time.Location, twelveHour bool) []gochart.Tick {
	const n = 5
	span := time.Duration(w.Width()) * time.Millisecond
	layout := "15:04"
	if twelveHour {
		layout = "3:04 PM"
	}
	if span > 24*time.Hour {
		layout = "Jan 2 " + layout
	}
	if span < 2*time.Minute {
		layout = strings.Replace(layout, "04", "04:05", 1)
	}

	ticks := make([]gochart.Tick, 0, n+1)
	for i := 0; i <= n; i++ {
		ms := w.Min + w.Width()*int64(i)/n
		t := time.UnixMilli(ms)
		ticks = append(ticks, gochart.Tick{
			Value: gochart.TimeToFloat64(t),
			Label: t.In(loc).Format(layout),
		})
	}
	return ticks
}

// countTicks returns integer ticks from min covering maxY.
func countTicks(maxY, min int) []gochart.Tick {
	if maxY <= min {
		maxY = min + 1
	}
	step := int(math.Ceil(float64(maxY-min) / 5))
	if step < 1 {
		step = 1
	}
	var ticks []gochart.Tick
	for v := min; ; v += step {
		ticks = append(ticks, gochart.Tick{Value: float64(v), Label: fmt.Sprintf("%d", v)})
		if v >= maxY {
			break
		}
	}
	return ticks
}
