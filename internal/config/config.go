// Package config loads shipyard settings from SHIPYARD_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"shipyard/internal/blob"
	"shipyard/internal/core"
)

// Prefix is prepended to every variable name.
const Prefix = "SHIPYARD_"

// Cap waiver selectors.
const (
	WaiverCockpitUpgrade = "cockpit_upgrade"
	WaiverNone           = "none"
)

// Config is the full process configuration.
type Config struct {
	StorageDriver   string        `env:"STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"shipyard.db"`
	PostgresDSN     string        `env:"POSTGRES_DSN"`
	Blob            blob.Config   `envPrefix:"BLOB_"`
	CatalogPath     string        `env:"CATALOG_PATH"`
	StatsPolicy     string        `env:"STATS_POLICY" envDefault:"size_penalized"`
	CapWaiver       string        `env:"CAP_WAIVER" envDefault:"cockpit_upgrade"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsNS       string        `env:"METRICS_NAMESPACE" envDefault:"shipyard"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return Parse(nil)
}

// Parse reads environ instead of the process environment when it is
// non-nil, then validates the result.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch core.StorageDriver(c.StorageDriver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%sPOSTGRES_DSN is required for the postgres driver", Prefix)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverMemory, blob.DriverFilesystem:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("%sBLOB_S3_BUCKET is required for the s3 driver", Prefix)
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if _, err := core.ParseStatsPolicy(c.StatsPolicy); err != nil {
		return err
	}
	if _, err := c.Waiver(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// Policy returns the configured stats policy.
func (c Config) Policy() core.StatsPolicy {
	p, err := core.ParseStatsPolicy(c.StatsPolicy)
	if err != nil {
		return core.PolicySizePenalized
	}
	return p
}

// Waiver maps the cap waiver selector to its predicate.
func (c Config) Waiver() (core.CapWaiver, error) {
	switch strings.ToLower(strings.TrimSpace(c.CapWaiver)) {
	case "", WaiverCockpitUpgrade:
		return core.CockpitUpgradeWaiver, nil
	case WaiverNone:
		return core.NoCapWaiver, nil
	}
	return nil, fmt.Errorf("unknown cap waiver %q", c.CapWaiver)
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// StorageOptions projects the persistence settings.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}
