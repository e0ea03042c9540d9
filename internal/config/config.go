// Package config loads the stratowatch configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/stratowatch/internal/chart"
	"github.com/fentz26/stratowatch/internal/sampler"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds stratowatch configuration.
type Config struct {
	// API is the daemon address clients connect to.
	API string `yaml:"api"`
	// Listen is the daemon's listen address.
	Listen string `yaml:"listen"`
	// Store selects and configures the snapshot store.
	Store StoreConfig `yaml:"store"`
	// PollInterval is how often the chart fetches fresh history.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Sampler configures the built-in probe loop.
	Sampler sampler.Config `yaml:"sampler"`
	// Presets are the range filter buttons.
	Presets []chart.Preset `yaml:"presets"`
	// DefaultPreset is the index of the preset active at startup. A negative
	// value selects the last preset.
	DefaultPreset int `yaml:"default_preset"`
	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// StoreConfig selects the snapshot store.
type StoreConfig struct {
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
	// File receives logs instead of stderr when set.
	File string `yaml:"file"`
}

// Dir returns ~/.stratowatch, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stratowatch"
	}
	return filepath.Join(home, ".stratowatch")
}

// DefaultPath returns ~/.stratowatch/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns a sensible default configuration.
func Default() *Config {
	return &Config{
		API:    "http://127.0.0.1:7477",
		Listen: "127.0.0.1:7477",
		Store: StoreConfig{
			Driver:        DriverSQLite,
			Path:          filepath.Join(Dir(), "stratowatch.db"),
			MongoDatabase: "stratowatch",
		},
		PollInterval:  chart.DefaultPollInterval,
		Sampler:       *sampler.DefaultConfig(),
		Presets:       chart.DefaultPresets(),
		DefaultPreset: -1,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFromHome loads configuration from ~/.stratowatch/config.yaml.
func LoadFromHome() (*Config, error) {
	return Load(DefaultPath())
}

// Save saves configuration to a YAML file, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return fmt.Errorf("store.mongo_uri and store.mongo_database are required for the mongo driver")
		}
	default:
		return fmt.Errorf("invalid store driver %q, must be: sqlite or mongo", c.Store.Driver)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.Sampler.Enabled() && c.Sampler.Interval <= 0 {
		return fmt.Errorf("sampler.interval must be positive")
	}

	for i, p := range c.Presets {
		if p.Label == "" {
			return fmt.Errorf("preset %d has no label", i)
		}
		if p.Seconds != nil && *p.Seconds <= 0 {
			return fmt.Errorf("preset %q: seconds must be positive", p.Label)
		}
	}
	if c.DefaultPreset >= len(c.Presets) && !(len(c.Presets) == 0 && c.DefaultPreset == 0) {
		return fmt.Errorf("default_preset %d out of range", c.DefaultPreset)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	return nil
}

// ActivePreset resolves DefaultPreset to an index into Presets.
func (c *Config) ActivePreset() int {
	if c.DefaultPreset < 0 {
		if len(c.Presets) == 0 {
			return 0
		}
		return len(c.Presets) - 1
	}
	return c.DefaultPreset
}
