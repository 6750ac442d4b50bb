// Package config loads runtime settings from .env, environment
// variables and an optional YAML file, in that order of discovery with
// the environment winning over the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI and engine need at startup.
type Config struct {
	// DBPath overrides the default database location when set.
	DBPath string `yaml:"db_path"`

	// LogMode is "dev" or "prod".
	LogMode string `yaml:"log_mode"`

	// AutosaveEvery is the answer count between best-effort saves.
	AutosaveEvery int `yaml:"autosave_every"`

	// FlushIntervalSec is the periodic background flush interval.
	FlushIntervalSec int `yaml:"flush_interval_sec"`

	// TargetRetention tunes review spacing, (0,1).
	TargetRetention float64 `yaml:"target_retention"`

	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogMode:          "prod",
		AutosaveEvery:    5,
		FlushIntervalSec: 60,
		TargetRetention:  0.9,
	}
}

// Load resolves configuration: defaults, then the YAML file at path (if
// path is non-empty and exists), then .env, then process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	// Missing .env is the normal case.
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CADENCE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CADENCE_LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	if v := os.Getenv("CADENCE_AUTOSAVE_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AutosaveEvery = n
		}
	}
	if v := os.Getenv("CADENCE_FLUSH_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlushIntervalSec = n
		}
	}
	if v := os.Getenv("CADENCE_TARGET_RETENTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.TargetRetention = f
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("CADENCE_OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
}

func (c Config) validate() error {
	if c.TargetRetention <= 0 || c.TargetRetention >= 1 {
		return fmt.Errorf("target retention %v out of (0,1)", c.TargetRetention)
	}
	if c.AutosaveEvery < 1 {
		return fmt.Errorf("autosave every %d, want >= 1", c.AutosaveEvery)
	}
	return nil
}
