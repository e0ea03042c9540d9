package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrInvalidLimit  = errors.New("limit must be a positive number of seconds within range")
	ErrInvalidCounts = errors.New("invalid instance counts")
)
