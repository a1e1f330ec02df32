// Package config loads the gatekeeper runtime configuration from a YAML file
// with environment overrides for deployment-specific paths and secrets.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/pilot"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
)

// #region config
// Config is the full runtime configuration.
type Config struct {
	Region string `yaml:"region" validate:"required"`
	Mode   string `yaml:"mode" validate:"required,oneof=BASELINE SCALE_UP BONUS"`

	// File paths. CorridorPath is optional; when empty the region profile's
	// derived corridor is used.
	CorridorPath string `yaml:"corridor_path"`
	LedgerDB     string `yaml:"ledger_db" validate:"required"`
	PilotDB      string `yaml:"pilot_db" validate:"required"`
	LCADB        string `yaml:"lca_db" validate:"required"`

	// Signer identity; the HMAC key comes from GATEKEEPER_SIGNER_KEY, never
	// from the file.
	SignerIdentity string `yaml:"signer_identity" validate:"required"`

	Residual ResidualConfig `yaml:"residual"`
	Pilot    PilotConfig    `yaml:"pilot"`

	TickIntervalMS int64  `yaml:"tick_interval_ms" validate:"gt=0"`
	LogLevel       string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// ResidualConfig mirrors the controller tolerances with YAML tags.
type ResidualConfig struct {
	Epsilon          float64 `yaml:"epsilon" validate:"gte=0"`
	StalenessBoundMS int64   `yaml:"staleness_bound_ms" validate:"gte=0"`
	TrendWindow      int     `yaml:"trend_window" validate:"gte=0"`
}

// PilotConfig mirrors the pilot window requirements with YAML tags.
type PilotConfig struct {
	MinWindowDays int `yaml:"min_window_days" validate:"gte=0"`
	MaxGapDays    int `yaml:"max_gap_days" validate:"gte=0"`
}

// Default returns the phoenix deployment defaults.
func Default() Config {
	return Config{
		Region:         "Phoenix-AZ-US",
		Mode:           "BASELINE",
		LedgerDB:       "gatekeeper_ledger.db",
		PilotDB:        "gatekeeper_pilot.db",
		LCADB:          "gatekeeper_lca.db",
		SignerIdentity: "phx-site-01",
		TickIntervalMS: 5000,
		LogLevel:       "info",
	}
}

// #endregion config

// #region load

// Load reads a YAML config file over the defaults, applies environment
// overrides, and validates the result. An empty path loads defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv lets deployment tooling override paths without editing the file.
func applyEnv(cfg *Config) {
	cfg.LedgerDB = envOr("GATEKEEPER_LEDGER_DB", cfg.LedgerDB)
	cfg.PilotDB = envOr("GATEKEEPER_PILOT_DB", cfg.PilotDB)
	cfg.LCADB = envOr("GATEKEEPER_LCA_DB", cfg.LCADB)
	cfg.Region = envOr("GATEKEEPER_REGION", cfg.Region)
	cfg.Mode = envOr("GATEKEEPER_MODE", cfg.Mode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load

// #region derive

// ResidualConfig converts to controller tolerances; zero fields keep the
// documented defaults.
func (c Config) ResidualConfig() residual.Config {
	out := residual.DefaultConfig()
	if c.Residual.Epsilon > 0 {
		out.Epsilon = c.Residual.Epsilon
	}
	if c.Residual.StalenessBoundMS > 0 {
		out.StalenessBound = time.Duration(c.Residual.StalenessBoundMS) * time.Millisecond
	}
	if c.Residual.TrendWindow > 0 {
		out.TrendWindow = c.Residual.TrendWindow
	}
	return out
}

// PilotConfig converts to pilot window requirements; zero fields keep the
// documented defaults.
func (c Config) PilotConfig() pilot.Config {
	out := pilot.DefaultConfig()
	if c.Pilot.MinWindowDays > 0 {
		out.MinWindow = time.Duration(c.Pilot.MinWindowDays) * 24 * time.Hour
	}
	if c.Pilot.MaxGapDays > 0 {
		out.MaxGap = time.Duration(c.Pilot.MaxGapDays) * 24 * time.Hour
	}
	return out
}

// TickInterval converts the configured tick interval.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// SignerKey reads the HMAC signing key from the environment.
func (c Config) SignerKey() ([]byte, error) {
	v := os.Getenv("GATEKEEPER_SIGNER_KEY")
	if v == "" {
		return nil, fmt.Errorf("config: GATEKEEPER_SIGNER_KEY not set")
	}
	return []byte(v), nil
}

// #endregion derive
