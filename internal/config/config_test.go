package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gavel.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
port: 9000
dbPath: /data/sessions.db
logFormat: json
defaultSpeakingTime: 90
tickInterval: 250ms
rosterUrl: http://roster.local
`)
	t.Setenv("GAVEL_PORT", "9100")
	t.Setenv("GAVEL_ROSTER_TOKEN", "tok")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("env should win over file, got port %d", cfg.Port)
	}
	if cfg.DBPath != "/data/sessions.db" || cfg.LogFormat != "json" || cfg.DefaultSpeakingTime != 90 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms tick, got %s", cfg.TickInterval)
	}
	if cfg.RosterToken != "tok" || cfg.RosterURL != "http://roster.local" {
		t.Errorf("unexpected roster settings %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unset keys should keep defaults, got %q", cfg.LogLevel)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		env  map[string]string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, nil},
		{"bad yaml", func(t *testing.T) string { return writeConfig(t, "port: [") }, nil},
		{"bad env", func(t *testing.T) string { return "" }, map[string]string{"GAVEL_PORT": "eighty"}},
		{"invalid port", func(t *testing.T) string { return writeConfig(t, "port: 70000") }, nil},
		{"zero speaking time", func(t *testing.T) string { return "" }, map[string]string{"GAVEL_DEFAULT_SPEAKING_TIME": "0"}},
		{"bad log format", func(t *testing.T) string { return writeConfig(t, "logFormat: xml") }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(tt.path(t)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DBPath = " "
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for blank db path")
	}
	cfg = Default()
	cfg.TickInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero tick interval")
	}
}
