package cliconfig

import (
	"github.com/caarlos0/env/v10"
)

// envConfig mirrors Config with RIGGING_* environment bindings. Durations
// come as strings so malformed values fail with a parse error naming the
// flag, matching the file loader.
type envConfig struct {
	LogLevel string `env:"RIGGING_LOG_LEVEL"`
	LogJSON  *bool  `env:"RIGGING_LOG_JSON"`

	WatchDir          string `env:"RIGGING_WATCH_DIR"`
	HeartbeatInterval string `env:"RIGGING_HEARTBEAT_INTERVAL"`

	PhaseTimeout     string `env:"RIGGING_PHASE_TIMEOUT"`
	HookTimeout      string `env:"RIGGING_HOOK_TIMEOUT"`
	LayerConcurrency int    `env:"RIGGING_LAYER_CONCURRENCY"`

	MetricsAddr string `env:"RIGGING_METRICS_ADDR"`
}

// ApplyEnvConfig applies configuration from environment variables (RIGGING_*).
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return err
	}

	s := newConfigSetter(changed)

	s.setString("log-level", ec.LogLevel, &cfg.LogLevel)
	s.setBool("log-json", ec.LogJSON, &cfg.LogJSON)
	s.setString("watch-dir", ec.WatchDir, &cfg.WatchDir)
	s.setString("metrics-addr", ec.MetricsAddr, &cfg.MetricsAddr)
	s.setInt("layer-concurrency", ec.LayerConcurrency, &cfg.LayerConcurrency)

	if err := s.setDuration("heartbeat", ec.HeartbeatInterval, &cfg.HeartbeatInterval); err != nil {
		return err
	}
	if err := s.setDuration("phase-timeout", ec.PhaseTimeout, &cfg.PhaseTimeout); err != nil {
		return err
	}
	if err := s.setDuration("hook-timeout", ec.HookTimeout, &cfg.HookTimeout); err != nil {
		return err
	}

	return nil
}
