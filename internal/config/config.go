// Package config loads server settings from defaults, an optional YAML file
// and GAVEL_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "GAVEL"

type Config struct {
	Port                int           `yaml:"port"                envconfig:"PORT"`
	DBPath              string        `yaml:"dbPath"              envconfig:"DB_PATH"`
	LogLevel            string        `yaml:"logLevel"            envconfig:"LOG_LEVEL"`
	LogFormat           string        `yaml:"logFormat"           envconfig:"LOG_FORMAT"`
	BaseURL             string        `yaml:"baseUrl"             envconfig:"BASE_URL"`
	RosterURL           string        `yaml:"rosterUrl"           envconfig:"ROSTER_URL"`
	RosterToken         string        `yaml:"rosterToken"         envconfig:"ROSTER_TOKEN"`
	DefaultSpeakingTime int           `yaml:"defaultSpeakingTime" envconfig:"DEFAULT_SPEAKING_TIME"`
	TickInterval        time.Duration `yaml:"tickInterval"        envconfig:"TICK_INTERVAL"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:                8081,
		DBPath:              "gavel.db",
		LogLevel:            "info",
		LogFormat:           "text",
		DefaultSpeakingTime: 60,
		TickInterval:        time.Second,
	}
}

// LoadConfig overlays the YAML file at path (skipped when empty) and then the
// environment onto the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path is required")
	}
	if c.DefaultSpeakingTime <= 0 {
		return fmt.Errorf("default speaking time must be positive, got %d", c.DefaultSpeakingTime)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
