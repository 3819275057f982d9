package cliconfig

import (
	"fmt"
	"time"
)

// Config holds CLI configuration for the rigging demo runner.
type Config struct {
	LogLevel string
	LogJSON  bool

	WatchDir          string
	HeartbeatInterval time.Duration

	PhaseTimeout     time.Duration
	HookTimeout      time.Duration
	LayerConcurrency int

	MetricsAddr string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:          "info",
		HeartbeatInterval: 5 * time.Second,
		PhaseTimeout:      30 * time.Second,
		HookTimeout:       10 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.PhaseTimeout < 0 {
		return fmt.Errorf("phase timeout must not be negative")
	}
	if c.HookTimeout < 0 {
		return fmt.Errorf("hook timeout must not be negative")
	}
	if c.LayerConcurrency < 0 {
		return fmt.Errorf("layer concurrency must not be negative")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
