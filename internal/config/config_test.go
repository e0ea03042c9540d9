package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Expected sqlite driver, got %s", cfg.Store.Driver)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("Expected 3s poll interval, got %s", cfg.PollInterval)
	}
	if cfg.Presets[cfg.ActivePreset()].Seconds != nil {
		t.Error("Expected the default preset to be unbounded")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: 0.0.0.0:9000
poll_interval: 5s
store:
  driver: mongo
  mongo_uri: mongodb://localhost:27017
sampler:
  interval: 30s
  command: cat
  args: [counts.json]
presets:
  - label: 15m
    seconds: 900
  - label: All
default_preset: 0
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.PollInterval != 5*time.Second {
		t.Errorf("Unexpected overrides: %+v", cfg)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Store.MongoDatabase != "stratowatch" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if !cfg.Sampler.Enabled() || cfg.Sampler.Interval != 30*time.Second || cfg.Sampler.Timeout != 5*time.Second {
		t.Errorf("Unexpected sampler config: %+v", cfg.Sampler)
	}
	if len(cfg.Presets) != 2 || *cfg.Presets[0].Seconds != 900 {
		t.Errorf("Unexpected presets: %+v", cfg.Presets)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Store.Driver = "redis" }},
		{"mongo without uri", func(c *Config) { c.Store.Driver = DriverMongo }},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"bad preset", func(c *Config) { c.Presets[0].Label = "" }},
		{"default preset range", func(c *Config) { c.DefaultPreset = 99 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Listen = "127.0.0.1:9999"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Listen != cfg.Listen || loaded.PollInterval != cfg.PollInterval {
		t.Errorf("Round trip mismatch: %+v", loaded)
	}

	if err := Save(path, nil); err == nil {
		t.Error("Expected error for nil config")
	}
}
