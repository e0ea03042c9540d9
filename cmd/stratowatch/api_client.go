package main

import (
	"github.com/fentz26/stratowatch/internal/client"
	"github.com/fentz26/stratowatch/internal/logging"
	"go.uber.org/zap"
)

// newAPIClient returns a client for the configured daemon address.
func newAPIClient() *client.Client {
	return client.NewClient(apiAddr)
}

// newLogger builds the process logger. The configured log file wins over
// fallbackFile; with neither, logs go to stderr.
func newLogger(fallbackFile string) (*zap.Logger, error) {
	path := cfg.Log.File
	if path == "" {
		path = fallbackFile
	}
	return logging.Install(cfg.Log.Level, path)
}

// limitFlag converts a --limit value to a history limit; 0 means unbounded.
func limitFlag(sec int) *int {
	if sec <= 0 {
		return nil
	}
	return &sec
}
