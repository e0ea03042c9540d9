package chart

import "errors"

// Sentinel errors for chart operations.
var (
	ErrPresetIndex = errors.New("preset index out of range")
	ErrNoPlot      = errors.New("no plot drawn yet")
	ErrNilFetcher  = errors.New("fetcher is required")
	ErrNilRenderer = errors.New("renderer is required")
	ErrNilSlider   = errors.New("slider is required")
)
