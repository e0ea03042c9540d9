package tui

import "github.com/fentz26/stratowatch/internal/client"

// redrawMsg asks the view to pick up a new canvas frame.
type redrawMsg struct{}

// daemonStatusMsg reports the daemon health check result.
type daemonStatusMsg struct {
	online bool
	health *client.HealthResponse
}

// healthTickMsg triggers the next health check.
type healthTickMsg struct{}

type errMsg struct {
	err error
}

// statusMsg carries a transient status line.
type statusMsg struct {
	message string
}
