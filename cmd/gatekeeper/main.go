package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/config"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/lca"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/ledger"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/orchestrator"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/pilot"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/region"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/threshold"
)

// #region sample

// sample is one measurement line fed to the gate on stdin.
type sample struct {
	Layer    string             `json:"layer"`
	Priority int                `json:"priority"`
	Tick     uint64             `json:"tick,omitempty"` // 0 = auto-increment
	Raws     map[string]float64 `json:"raws"`
}

// #endregion sample

// #region main
func main() {
	configPath := flag.String("config", envOr("GATEKEEPER_CONFIG", ""), "path to gatekeeper.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.LogLevel)

	reg, err := buildCorridor(cfg)
	if err != nil {
		logger.Error("corridor", "err", err)
		os.Exit(2)
	}

	key, err := cfg.SignerKey()
	if err != nil {
		logger.Error("signer", "err", err)
		os.Exit(2)
	}
	signer, err := ledger.NewHMACSigner(cfg.SignerIdentity, key)
	if err != nil {
		logger.Error("signer", "err", err)
		os.Exit(2)
	}
	led, err := ledger.Open(cfg.LedgerDB, signer, signer)
	if err != nil {
		logger.Error("open ledger", "err", err)
		os.Exit(2)
	}
	defer led.Close()

	pilotStore, err := pilot.NewStore(cfg.PilotDB)
	if err != nil {
		logger.Error("open pilot store", "err", err)
		os.Exit(2)
	}
	defer pilotStore.Close()

	lcaStore, err := lca.NewStore(cfg.LCADB)
	if err != nil {
		logger.Error("open lca store", "err", err)
		os.Exit(2)
	}
	defer lcaStore.Close()

	// Seed the controller from the region baseline until live telemetry
	// replaces it.
	ctrl := residual.NewController(cfg.ResidualConfig())
	now := time.Now().UTC()
	seedCoords, err := corridor.NormalizeAll(reg, region.PhoenixAZ().BaselineRaws(), now)
	if err != nil {
		logger.Error("normalize baseline", "err", err)
		os.Exit(2)
	}
	seeded, err := ctrl.Seed(seedCoords, now)
	if err != nil {
		logger.Error("seed controller", "err", err)
		os.Exit(2)
	}
	logger.Info("controller seeded", "v", seeded.V, "params", reg.Len())

	orch, err := orchestrator.New(orchestrator.Deps{
		Registry:   reg,
		Residual:   ctrl,
		Threshold:  threshold.NewEvaluator(reg),
		LCA:        lca.NewEvaluator(lcaStore),
		Pilot:      pilot.NewAggregator(cfg.PilotConfig()),
		PilotStore: pilotStore,
		Ledger:     led,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("orchestrator", "err", err)
		os.Exit(2)
	}

	fmt.Printf("Gatekeeper ready. region=%s mode=%s ledger=%s\n", cfg.Region, cfg.Mode, cfg.LedgerDB)
	fmt.Println(`Feed one JSON sample per line ({"layer":...,"priority":...,"raws":{...}}), 'quit' to exit:`)

	scanner := bufio.NewScanner(os.Stdin)
	var tick uint64

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		var s sample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			logger.Error("parse sample", "err", err)
			continue
		}
		if s.Tick == 0 {
			tick++
			s.Tick = tick
		} else {
			tick = s.Tick
		}

		move := orchestrator.Move{
			Layer:     s.Layer,
			Priority:  s.Priority,
			Tick:      s.Tick,
			Timestamp: time.Now().UTC(),
			Raws:      s.Raws,
		}

		var d orchestrator.Decision
		if cfg.Mode == "BASELINE" {
			d, err = orch.SafetyGate(move)
		} else {
			d, err = orch.ScaleUpGate(move)
		}
		if err != nil {
			// Verdict withheld: the audit trail could not record it.
			logger.Error("verdict withheld", "err", err)
			continue
		}

		fmt.Printf("[tick %d] gate=%s verdict=%v action=%s drift=%v\n",
			s.Tick, d.Gate, d.Verdict, d.Action, d.Drift)
		for _, r := range d.Reasons {
			fmt.Printf("  reason: %s\n", r)
		}
	}
}

// #endregion main

// #region helpers

// buildCorridor loads an explicit corridor file when configured, otherwise
// derives the corridor from the region profile.
func buildCorridor(cfg config.Config) (*corridor.Registry, error) {
	if cfg.CorridorPath != "" {
		return corridor.LoadSpec(cfg.CorridorPath)
	}
	if cfg.Region != region.PhoenixAZ().Code {
		return nil, fmt.Errorf("no corridor_path and no built-in profile for region %s", cfg.Region)
	}
	return corridor.BuildRegistry(region.PhoenixAZ().CorridorSpec())
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
	}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
