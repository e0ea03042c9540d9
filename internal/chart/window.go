package chart

// Window is the [Min, Max] time range rendered on the x-axis, in unix
// milliseconds.
type Window struct {
	Min int64
	Max int64
}

// Width returns Max - Min.
func (w Window) Width() int64 {
	return w.Max - w.Min
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t int64) bool {
	return t >= w.Min && t <= w.Max
}

// WindowPolicy decides the visible window on every data-driven redraw.
//
// The window's max edge follows "now" for as long as it sits on the "now"
// recorded at the previous redraw. Once the user drags it elsewhere the
// window stays put until the range filter changes.
type WindowPolicy struct {
	rangeChanged bool
	lastNow      int64
}

// MarkRangeChanged forces the next Resolve to reset the window to the full
// data range ending at now.
func (p *WindowPolicy) MarkRangeChanged() {
	p.rangeChanged = true
}

// RangeChanged reports whether a range filter change is pending.
func (p *WindowPolicy) RangeChanged() bool {
	return p.rangeChanged
}

// LastNow returns the "now" recorded by the previous Resolve.
func (p *WindowPolicy) LastNow() int64 {
	return p.lastNow
}

// Resolve computes the window for data fetched at now, given the slider's
// current selection. It clears the range-changed flag and records now.
func (p *WindowPolicy) Resolve(current Window, data []Snapshot, now int64) Window {
	reset := current.Min == 0 || p.rangeChanged

	w := current
	if reset && len(data) > 0 {
		w.Min = data[0].Time
	}
	if reset || current.Max == p.lastNow {
		w.Max = now
	}
	if w.Min > w.Max {
		w.Min = w.Max
	}

	p.rangeChanged = false
	p.lastNow = now
	return w
}
