package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				LogLevel:          "debug",
				LogJSON:           &trueVal,
				WatchDir:          "/etc/rigging",
				HeartbeatInterval: "2s",
				PhaseTimeout:      "1m",
				HookTimeout:       "15s",
				LayerConcurrency:  4,
				MetricsAddr:       ":9090",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				LogLevel:          "debug",
				LogJSON:           true,
				WatchDir:          "/etc/rigging",
				HeartbeatInterval: 2 * time.Second,
				PhaseTimeout:      time.Minute,
				HookTimeout:       15 * time.Second,
				LayerConcurrency:  4,
				MetricsAddr:       ":9090",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				LogLevel: "debug",
				WatchDir: "/from/file",
			},
			changed: map[string]bool{"log-level": true},
			initial: Config{
				LogLevel: "warn",
			},
			expected: Config{
				LogLevel: "warn", // unchanged because flag was set
				WatchDir: "/from/file",
			},
		},
		{
			name: "empty values do not clobber",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial: Config{
				LogLevel:          "info",
				HeartbeatInterval: 5 * time.Second,
			},
			expected: Config{
				LogLevel:          "info",
				HeartbeatInterval: 5 * time.Second,
			},
		},
		{
			name: "malformed duration fails",
			fileConfig: FileConfig{
				HeartbeatInterval: "soon",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ApplyFileConfig() = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() error = %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"
watch_dir = "/srv/app"
heartbeat_interval = "1s"
layer_concurrency = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.LogLevel != "debug" || fc.WatchDir != "/srv/app" || fc.LayerConcurrency != 2 {
		t.Errorf("LoadFileConfig() = %+v", fc)
	}

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("LoadFileConfig(missing) = nil, want error")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if FileExists(path) {
		t.Error("FileExists() = true for missing file")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
}
