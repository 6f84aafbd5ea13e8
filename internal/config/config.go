// Package config loads the tracker's settings from
// <home>/config.yaml, with environment overrides layered on top of
// built-in defaults. The database path is resolved here and handed to
// the store constructor explicitly; nothing else in the program knows
// where the file lives.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type OtelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	// TickSeconds is the display refresh cadence of the session
	// screen; CheckpointSeconds is how much elapsed time may pass
	// between durable autosaves.
	TickSeconds       int `yaml:"tick_seconds"`
	CheckpointSeconds int `yaml:"checkpoint_seconds"`

	Otel OtelConfig `yaml:"otel"`
}

// HomeDir resolves the data directory: FLOW_HOME when set, otherwise
// ~/.flow.
func HomeDir() string {
	if override := os.Getenv("FLOW_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".flow")
}

func defaultConfig() Config {
	return Config{
		LogLevel:          "info",
		TickSeconds:       1,
		CheckpointSeconds: 30,
		Otel: OtelConfig{
			ServiceName: "flow",
		},
	}
}

func Load() (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = HomeDir()

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create flow home: %w", err)
	}

	configPath := filepath.Join(cfg.HomeDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config.yaml: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("FLOW_DB_PATH"); raw != "" {
		cfg.DBPath = raw
	}
	if raw := os.Getenv("FLOW_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("FLOW_CHECKPOINT_SECONDS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.CheckpointSeconds = v
		}
	}
}

func normalize(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.HomeDir, "flow.db")
	}
	if cfg.TickSeconds < 1 {
		cfg.TickSeconds = 1
	}
	if cfg.CheckpointSeconds < 1 {
		cfg.CheckpointSeconds = 30
	}
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

func (c Config) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointSeconds) * time.Second
}
