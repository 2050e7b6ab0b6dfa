// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Sink    SinkConfig    `yaml:"sink"`
	Backend BackendConfig `yaml:"backend"`
	Player  PlayerConfig  `yaml:"player"`
	Buttons ButtonsConfig `yaml:"buttons"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig represents the removable storage configuration.
type StorageConfig struct {
	Root       string   `yaml:"root" validate:"required"`
	Extensions []string `yaml:"extensions" default:"[\".wav\", \".mp3\"]" validate:"min=1"`
}

// SinkConfig represents the audio sink configuration.
type SinkConfig struct {
	Type       string         `yaml:"type" default:"http" validate:"required,oneof=http speaker"`
	DeviceName string         `yaml:"device_name" default:"walkbox"`
	Settings   map[string]any `yaml:"settings"`
}

// BackendConfig represents the audio delivery backend configuration.
type BackendConfig struct {
	Type     string         `yaml:"type" default:"pull" validate:"required,oneof=pull push"`
	Settings map[string]any `yaml:"settings"`
}

// PlayerConfig represents the control loop configuration.
type PlayerConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms" default:"5" validate:"gte=1,lte=1000"`
}

// TickInterval returns the control loop cadence as a duration.
func (p PlayerConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// ButtonsConfig represents the physical button configuration.
// Key codes follow the Linux input event codes (115 = volume up,
// 114 = volume down).
type ButtonsConfig struct {
	DebounceMs  int    `yaml:"debounce_ms" default:"25" validate:"gte=0,lte=500"`
	LongPressMs int    `yaml:"long_press_ms" default:"800" validate:"gte=100,lte=5000"`
	NextDevice  string `yaml:"next_device"`
	PrevDevice  string `yaml:"prev_device"`
	NextKey     uint16 `yaml:"next_key" default:"115"`
	PrevKey     uint16 `yaml:"prev_key" default:"114"`
}

// Debounce returns the debounce interval as a duration.
func (b ButtonsConfig) Debounce() time.Duration {
	return time.Duration(b.DebounceMs) * time.Millisecond
}

// LongPress returns the long-press threshold as a duration.
func (b ButtonsConfig) LongPress() time.Duration {
	return time.Duration(b.LongPressMs) * time.Millisecond
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stdout"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("WALKBOX_STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("WALKBOX_DEVICE_NAME"); v != "" {
		c.Sink.DeviceName = v
	}
	if v := os.Getenv("WALKBOX_SINK_ADDR"); v != "" {
		if c.Sink.Settings == nil {
			c.Sink.Settings = make(map[string]any)
		}
		c.Sink.Settings["addr"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Validate button timing consistency
	if err := c.validateButtonTiming(); err != nil {
		return err
	}

	return nil
}

// validateButtonTiming checks that the long-press threshold exceeds the
// debounce interval, otherwise a long press could never be recognized.
func (c *Config) validateButtonTiming() error {
	if c.Buttons.LongPressMs <= c.Buttons.DebounceMs {
		return errors.Newf("long_press_ms (%d) must be greater than debounce_ms (%d)",
			c.Buttons.LongPressMs, c.Buttons.DebounceMs)
	}
	return nil
}
