package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/stratowatch/internal/chart"
)

// handle identifies what a pointer grabbed on the slider track.
type handle int

const (
	handleNone handle = iota
	handleMin
	handleMax
	handleBand
)

// track maps between slider times and terminal columns.
type track struct {
	x0     int
	width  int
	bounds chart.Window
}

func (t track) colToTime(col int) int64 {
	if t.width <= 1 {
		return t.bounds.Min
	}
	c := col - t.x0
	if c < 0 {
		c = 0
	}
	if c > t.width-1 {
		c = t.width - 1
	}
	return t.bounds.Min + t.bounds.Width()*int64(c)/int64(t.width-1)
}

func (t track) timeToCol(ms int64) int {
	if t.bounds.Width() <= 0 || t.width <= 1 {
		return t.x0
	}
	off := (ms - t.bounds.Min) * int64(t.width-1) / t.bounds.Width()
	if off < 0 {
		off = 0
	}
	if off > int64(t.width-1) {
		off = int64(t.width - 1)
	}
	return t.x0 + int(off)
}

// hit decides which part of the slider a press at col grabs.
func (t track) hit(col int, value chart.Window) handle {
	lo, hi := t.timeToCol(value.Min), t.timeToCol(value.Max)
	dLo, dHi := abs(col-lo), abs(col-hi)
	switch {
	case dLo <= 1 && dLo <= dHi:
		return handleMin
	case dHi <= 1:
		return handleMax
	case col > lo && col < hi:
		return handleBand
	case col <= lo:
		return handleMin
	default:
		return handleMax
	}
}

// render draws the track with the selected band and both handles.
func (t track) render(value chart.Window, active bool) string {
	if t.width <= 0 {
		return ""
	}
	lo, hi := t.timeToCol(value.Min)-t.x0, t.timeToCol(value.Max)-t.x0

	bandColor := mutedColor
	if active {
		bandColor = primaryColor
	}
	rail := lipgloss.NewStyle().Foreground(mutedColor)
	band := lipgloss.NewStyle().Foreground(bandColor)
	knob := lipgloss.NewStyle().Foreground(fgColor).Bold(true)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", t.x0))
	for i := 0; i < t.width; i++ {
		switch {
		case i == lo || i == hi:
			b.WriteString(knob.Render("┃"))
		case i > lo && i < hi:
			b.WriteString(band.Render("━"))
		default:
			b.WriteString(rail.Render("─"))
		}
	}
	return b.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
