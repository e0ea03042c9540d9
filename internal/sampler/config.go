// Package sampler periodically probes instance states and records snapshots.
package sampler

import "time"

// Config defines the sampler configuration.
type Config struct {
	// Interval is the time between two probes.
	Interval time.Duration `yaml:"interval"`
	// Timeout bounds a single probe run.
	Timeout time.Duration `yaml:"timeout"`
	// Command is the probe command. Sampling is disabled when empty.
	Command string `yaml:"command"`
	// Args are passed to Command.
	Args []string `yaml:"args"`
	// Allowlist maps permitted commands to permitted first arguments.
	Allowlist map[string][]string `yaml:"allowlist"`
}

// DefaultConfig returns the default sampler configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval: 10 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Enabled reports whether a probe command is configured.
func (c *Config) Enabled() bool {
	return c.Command != ""
}
