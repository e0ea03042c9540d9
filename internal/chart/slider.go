package chart

import "sync"

// DragState is the slider interaction state.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

// String returns the state name.
func (d DragState) String() string {
	if d == Dragging {
		return "dragging"
	}
	return "idle"
}

// RangeObserver receives slider events. OnRangeChange fires continuously while
// a handle moves; OnRangeCommit fires once when it is released.
type RangeObserver interface {
	OnRangeChange(w Window)
	OnRangeCommit(w Window)
}

// Slider is the range widget the controller reads and repositions.
type Slider interface {
	// Value returns the selected range.
	Value() Window
	// Bounds returns the range the handles can move in.
	Bounds() Window
	// Reset replaces the bounds and moves the handles to start without
	// emitting events.
	Reset(bounds, start Window)
}

// RangeSlider is a two-handle slider model. Hosts translate pointer or key
// input into Slide and Set calls; subscribers receive the resulting events.
type RangeSlider struct {
	mu        sync.Mutex
	bounds    Window
	value     Window
	observers []RangeObserver
}

// NewRangeSlider returns a slider with placeholder bounds [0, 10] until the
// first data arrives. A zero Min marks the selection as never set.
func NewRangeSlider() *RangeSlider {
	return &RangeSlider{
		bounds: Window{Min: 0, Max: 10},
		value:  Window{Min: 0, Max: 10},
	}
}

// Subscribe registers o for slide and set events.
func (s *RangeSlider) Subscribe(o RangeObserver) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Value returns the selected range.
func (s *RangeSlider) Value() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Bounds returns the range the handles can move in.
func (s *RangeSlider) Bounds() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// Reset replaces the bounds and handle positions without emitting events.
func (s *RangeSlider) Reset(bounds, start Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bounds.Min > bounds.Max {
		bounds.Min, bounds.Max = bounds.Max, bounds.Min
	}
	s.bounds = bounds
	s.value = start
}

// Slide moves the handles to w, clamped to the bounds, and emits
// OnRangeChange with the resulting selection.
func (s *RangeSlider) Slide(w Window) Window {
	s.mu.Lock()
	s.value = s.clamp(w)
	v := s.value
	observers := append([]RangeObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.OnRangeChange(v)
	}
	return v
}

// Set releases the handles and emits OnRangeCommit with the selection.
func (s *RangeSlider) Set() Window {
	s.mu.Lock()
	v := s.value
	observers := append([]RangeObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.OnRangeCommit(v)
	}
	return v
}

// Pan shifts both handles by delta keeping the selection width.
func (s *RangeSlider) Pan(delta int64) Window {
	s.mu.Lock()
	v, b := s.value, s.bounds
	s.mu.Unlock()

	width := v.Width()
	v.Min += delta
	v.Max += delta
	if v.Min < b.Min {
		v = Window{Min: b.Min, Max: b.Min + width}
	}
	if v.Max > b.Max {
		v = Window{Min: b.Max - width, Max: b.Max}
	}
	return s.Slide(v)
}

// MoveMin shifts the lower handle by delta.
func (s *RangeSlider) MoveMin(delta int64) Window {
	v := s.Value()
	v.Min += delta
	return s.Slide(v)
}

// MoveMax shifts the upper handle by delta.
func (s *RangeSlider) MoveMax(delta int64) Window {
	v := s.Value()
	v.Max += delta
	return s.Slide(v)
}

// clamp keeps w inside the bounds with Min <= Max. Callers hold s.mu.
func (s *RangeSlider) clamp(w Window) Window {
	if w.Min > w.Max {
		w.Min, w.Max = w.Max, w.Min
	}
	if w.Min < s.bounds.Min {
		w.Min = s.bounds.Min
	}
	if w.Max > s.bounds.Max {
		w.Max = s.bounds.Max
	}
	if w.Min > w.Max {
		w.Min = w.Max
	}
	return w
}
