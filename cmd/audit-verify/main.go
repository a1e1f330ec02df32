package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/config"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/lca"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/ledger"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/orchestrator"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/pilot"
)

// #region main

// audit-verify is the release check: it proves the audit chain is intact and,
// when functional units are given, that the deployment evidence holds. Any
// failure exits non-zero, which is the CI contract.
func main() {
	configPath := flag.String("config", envOr("GATEKEEPER_CONFIG", ""), "path to gatekeeper.yaml")
	units := flag.String("units", "", "comma-separated functional units for the deployment check")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	code := verifyChain(cfg)
	if *units != "" {
		if c := verifyDeployment(cfg, strings.Split(*units, ",")); c > code {
			code = c
		}
	}
	os.Exit(code)
}

// #endregion main

// #region chain

func verifyChain(cfg config.Config) int {
	key, err := cfg.SignerKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer key: %v\n", err)
		return 2
	}
	signer, err := ledger.NewHMACSigner(cfg.SignerIdentity, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer: %v\n", err)
		return 2
	}
	led, err := ledger.Open(cfg.LedgerDB, signer, signer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open ledger: %v\n", err)
		return 2
	}
	defer led.Close()

	// Census pass: head sequence plus decision counts per gate.
	var head uint64
	admits, rejects := map[string]int{}, map[string]int{}
	for rec, err := range led.Query(func(ledger.Record) bool { return true }) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan ledger: %v\n", err)
			return 2
		}
		head = rec.Seq
		if rec.Kind != "gate_decision" {
			continue
		}
		var d orchestrator.Decision
		if err := json.Unmarshal(rec.Payload, &d); err != nil {
			fmt.Fprintf(os.Stderr, "decode decision seq %d: %v\n", rec.Seq, err)
			return 1
		}
		if d.Verdict {
			admits[d.Gate]++
		} else {
			rejects[d.Gate]++
		}
	}
	if head == 0 {
		fmt.Println("ledger empty, nothing to verify")
		return 0
	}

	if err := led.VerifyChain(1, head); err != nil {
		fmt.Fprintf(os.Stderr, "chain verification FAILED: %v\n", err)
		return 1
	}

	fmt.Printf("chain OK: %d records verified (%s)\n", head, cfg.LedgerDB)
	for _, gate := range []string{orchestrator.GateSafety, orchestrator.GateScaleUp, orchestrator.GateDeployment} {
		if admits[gate]+rejects[gate] > 0 {
			fmt.Printf("  %-10s admits=%d rejects=%d\n", gate, admits[gate], rejects[gate])
		}
	}
	return 0
}

// #endregion chain

// #region deployment

// verifyDeployment runs the read-only deployment evidence checks: the LCA
// comparison for every declared functional unit and the pilot window. It does
// not append to the ledger; release tooling records its own decision.
func verifyDeployment(cfg config.Config, units []string) int {
	lcaStore, err := lca.NewStore(cfg.LCADB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open lca store: %v\n", err)
		return 2
	}
	defer lcaStore.Close()

	pilotStore, err := pilot.NewStore(cfg.PilotDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open pilot store: %v\n", err)
		return 2
	}
	defer pilotStore.Close()

	code := 0
	eval := lca.NewEvaluator(lcaStore)
	for _, fu := range units {
		fu = strings.TrimSpace(fu)
		v, err := eval.Evaluate(cfg.Region, fu)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lca %s: %v\n", fu, err)
			code = 1
			continue
		}
		if !v.DeploymentOK {
			fmt.Fprintf(os.Stderr, "lca %s FAILED: %v\n", fu, v.Reasons)
			code = 1
			continue
		}
		fmt.Printf("lca %s OK: gwp %.1f vs %.1f\n", fu, v.GWPCybo, v.GWPBase)
	}

	pv, err := pilot.NewAggregator(cfg.PilotConfig()).EvaluateStore(pilotStore, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "pilot evidence: %v\n", err)
		return 1
	}
	if !pv.PilotScaleUpOK {
		fmt.Fprintf(os.Stderr, "pilot FAILED: %v\n", pv.Reasons)
		return 1
	}
	fmt.Println("pilot window OK")
	return code
}

// #endregion deployment

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
