// Package config loads the application configuration: alert thresholds and
// the settings for the source and notification adapters.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adpulse/adpulse/internal/domain/alerts"
	"github.com/adpulse/adpulse/internal/infrastructure/db"
	"github.com/adpulse/adpulse/internal/infrastructure/llm"
	"github.com/adpulse/adpulse/internal/infrastructure/mailer"
)

// RedisConfig points at the optional shared alert-dedup store.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// ReportConfig controls notification behavior.
type ReportConfig struct {
	Subject       string `yaml:"subject"`
	DedupTTLHours int    `yaml:"dedup_ttl_hours"`
}

// AppConfig is the full configuration tree, one YAML file.
type AppConfig struct {
	Thresholds alerts.Thresholds `yaml:"thresholds"`
	Database   db.Config         `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	LLM        llm.Config        `yaml:"llm"`
	SMTP       mailer.Config     `yaml:"smtp"`
	Report     ReportConfig      `yaml:"report"`
}

// Default returns the canonical configuration.
func Default() AppConfig {
	return AppConfig{
		Thresholds: alerts.DefaultThresholds(),
		Database:   db.DefaultConfig(),
		LLM:        llm.DefaultConfig(),
		SMTP:       mailer.DefaultConfig(),
		Report: ReportConfig{
			Subject:       "Daily Delivery Scorecards",
			DedupTTLHours: 48,
		},
	}
}

// Load reads the YAML config at path over the defaults, then applies env
// overrides for secrets. A missing file is not an error: the defaults
// stand and secrets still come from the environment.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.Database.ApplyEnvOverrides()
	cfg.LLM.ApplyEnvOverrides()
	cfg.SMTP.ApplyEnvOverrides()

	return &cfg, nil
}
