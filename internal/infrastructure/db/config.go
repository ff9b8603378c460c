package db

import (
	"os"
	"time"
)

// Config holds database connection configuration for the optional Postgres
// delivery-history source.
type Config struct {
	DSN             string        `yaml:"dsn"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	Enabled         bool          `yaml:"enabled"`
}

// DefaultConfig returns reasonable defaults. Disabled until a DSN is
// explicitly configured; CSV remains the default source.
func DefaultConfig() Config {
	return Config{
		Table:           "delivery_daily",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    30 * time.Second,
	}
}

// ApplyEnvOverrides lets deployment env vars take precedence over the
// config file, so the DSN never has to live on disk.
func (c *Config) ApplyEnvOverrides() {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		c.DSN = dsn
		c.Enabled = true
	}
	if table := os.Getenv("PG_TABLE"); table != "" {
		c.Table = table
	}
}
