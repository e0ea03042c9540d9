// Package chart drives a stacked instance-state chart whose visible time
// window either follows the live edge or stays where the user dragged it.
//
// The package owns no drawing code. A Renderer draws plots, a Slider holds
// the range handles and a Fetcher supplies the state history. Controller ties
// them together and polls for fresh data.
package chart

import "github.com/fentz26/stratowatch/internal/models"

// Snapshot is one timestamped measurement as served by the history endpoint.
// Time is in unix milliseconds.
type Snapshot = models.HistoryPoint

// Kind identifies one of the three plotted series.
type Kind int

const (
	Running Kind = iota
	Pending
	Failed
)

var kindLabels = [...]string{"Running", "Pending", "Failed"}

// kindColors follow the success / warning / danger palette of the web dashboard.
var kindColors = [...]string{"#5cb85c", "#f0ad4e", "#d9534f"}

// String returns the series label.
func (k Kind) String() string {
	if k < Running || k > Failed {
		return "Unknown"
	}
	return kindLabels[k]
}

// Color returns the series color as a hex string.
func (k Kind) Color() string {
	if k < Running || k > Failed {
		return "#777777"
	}
	return kindColors[k]
}

// Point is a single (time, count) sample.
type Point struct {
	T int64
	V int
}

// Series is one named, colored area of the chart.
type Series struct {
	Kind   Kind
	Label  string
	Color  string
	Points []Point
}

// Last returns the last point and whether the series has one.
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// BuildSeries turns snapshots into the Running, Pending and Failed series,
// one point per snapshot in order. A non-empty history gets one extra point
// at now repeating the last snapshot, so the areas reach the right edge
// instead of ending in a vertical drop.
func BuildSeries(data []Snapshot, now int64) []Series {
	series := make([]Series, 3)
	for k := Running; k <= Failed; k++ {
		series[k] = Series{
			Kind:   k,
			Label:  k.String(),
			Color:  k.Color(),
			Points: make([]Point, 0, len(data)+1),
		}
	}

	for _, snap := range data {
		series[Running].Points = append(series[Running].Points, Point{T: snap.Time, V: snap.Running})
		series[Pending].Points = append(series[Pending].Points, Point{T: snap.Time, V: snap.Pending})
		series[Failed].Points = append(series[Failed].Points, Point{T: snap.Time, V: snap.Failed})
	}

	if len(data) > 0 {
		last := data[len(data)-1]
		series[Running].Points = append(series[Running].Points, Point{T: now, V: last.Running})
		series[Pending].Points = append(series[Pending].Points, Point{T: now, V: last.Pending})
		series[Failed].Points = append(series[Failed].Points, Point{T: now, V: last.Failed})
	}

	return series
}

// Stack returns, for each series, the cumulative top edge of its area when
// the series are stacked in order. Points are matched by index, which holds
// for series produced by BuildSeries.
func Stack(series []Series) [][]int {
	tops := make([][]int, len(series))
	for i, s := range series {
		tops[i] = make([]int, len(s.Points))
		for j, p := range s.Points {
			tops[i][j] = p.V
			if i > 0 && j < len(tops[i-1]) {
				tops[i][j] += tops[i-1][j]
			}
		}
	}
	return tops
}
