package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	LogLevel string `toml:"log_level"`
	LogJSON  *bool  `toml:"log_json"`

	WatchDir          string `toml:"watch_dir"`
	HeartbeatInterval string `toml:"heartbeat_interval"`

	PhaseTimeout     string `toml:"phase_timeout"`
	HookTimeout      string `toml:"hook_timeout"`
	LayerConcurrency int    `toml:"layer_concurrency"`

	MetricsAddr string `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.rigging/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rigging", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	s.setString("watch-dir", fc.WatchDir, &cfg.WatchDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setInt("layer-concurrency", fc.LayerConcurrency, &cfg.LayerConcurrency)

	if err := s.setDuration("heartbeat", fc.HeartbeatInterval, &cfg.HeartbeatInterval); err != nil {
		return err
	}
	if err := s.setDuration("phase-timeout", fc.PhaseTimeout, &cfg.PhaseTimeout); err != nil {
		return err
	}
	if err := s.setDuration("hook-timeout", fc.HookTimeout, &cfg.HookTimeout); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
