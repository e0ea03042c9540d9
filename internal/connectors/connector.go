// Package connectors defines how stratowatch observes compute instance states.
package connectors

import (
	"context"
	"errors"

	"github.com/fentz26/stratowatch/internal/models"
)

// ErrNotAllowed is returned when a probe command is outside the allowlist.
var ErrNotAllowed = errors.New("command not allowed")

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Probe reports the current instance counts of every compute group.
type Probe interface {
	// Name returns the connector identifier.
	Name() string

	// Probe returns the per-group counts observed right now.
	Probe(ctx context.Context) ([]models.GroupCounts, error)
}
