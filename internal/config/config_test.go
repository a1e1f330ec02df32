package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatekeeper.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Region != "Phoenix-AZ-US" || cfg.Mode != "BASELINE" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TickInterval() != 5*time.Second {
		t.Fatalf("unexpected tick interval: %v", cfg.TickInterval())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
region: Tucson-AZ-US
mode: SCALE_UP
ledger_db: /var/lib/gatekeeper/ledger.db
pilot_db: /var/lib/gatekeeper/pilot.db
lca_db: /var/lib/gatekeeper/lca.db
signer_identity: tus-site-02
tick_interval_ms: 1000
residual:
  epsilon: 1e-6
  staleness_bound_ms: 60000
  trend_window: 3
pilot:
  min_window_days: 400
  max_gap_days: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Region != "Tucson-AZ-US" || cfg.Mode != "SCALE_UP" {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	rc := cfg.ResidualConfig()
	if rc.Epsilon != 1e-6 || rc.StalenessBound != time.Minute || rc.TrendWindow != 3 {
		t.Fatalf("residual config not derived: %+v", rc)
	}
	pc := cfg.PilotConfig()
	if pc.MinWindow != 400*24*time.Hour || pc.MaxGap != 30*24*time.Hour {
		t.Fatalf("pilot config not derived: %+v", pc)
	}
}

func TestLoadZeroTolerancesKeepDefaults(t *testing.T) {
	path := writeConfig(t, "region: Phoenix-AZ-US\nmode: BASELINE\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rc := cfg.ResidualConfig()
	if rc.Epsilon != 1e-9 || rc.StalenessBound != 30*time.Second || rc.TrendWindow != 5 {
		t.Fatalf("expected documented defaults, got %+v", rc)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "region: Phoenix-AZ-US\nbogus_field: 1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("unknown field must be rejected")
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, "mode: TURBO\n")
	if _, err := Load(path); err == nil {
		t.Fatal("invalid mode must be rejected")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GATEKEEPER_LEDGER_DB", "/tmp/override.db")
	t.Setenv("GATEKEEPER_MODE", "SCALE_UP")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LedgerDB != "/tmp/override.db" || cfg.Mode != "SCALE_UP" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestSignerKey(t *testing.T) {
	cfg := Default()
	if _, err := cfg.SignerKey(); err == nil {
		t.Fatal("missing signer key must error")
	}
	t.Setenv("GATEKEEPER_SIGNER_KEY", "sekrit")
	key, err := cfg.SignerKey()
	if err != nil || string(key) != "sekrit" {
		t.Fatalf("signer key: %v %q", err, key)
	}
}
