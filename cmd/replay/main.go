package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/ledger"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/orchestrator"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/region"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/replay"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/threshold"
)

// #region main

func main() {
	ledgerPath := flag.String("ledger", "", "path to gatekeeper ledger db (ledger mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*ledgerPath == "" && *fixturePath == "") || (*ledgerPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --ledger path/to/gatekeeper_ledger.db")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runLedgerMode(*ledgerPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	h, seed, ticks, err := replay.FromFixture(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build harness: %v\n", err)
		return 2
	}
	results, err := h.Replay(seed, ticks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}
	return printComparison(results, expected)
}

// #endregion fixture-mode

// #region ledger-mode

// runLedgerMode re-derives every recorded safety decision from its raw
// measurements and compares actions. Arbitration rejections are skipped: the
// replay harness evaluates one layer in isolation.
func runLedgerMode(path string) int {
	// Read-only pass: verification identity is irrelevant here, the chain
	// check lives in audit-verify.
	signer, err := ledger.NewHMACSigner("replay", []byte("replay"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer: %v\n", err)
		return 2
	}
	led, err := ledger.Open(path, signer, signer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open ledger: %v\n", err)
		return 2
	}
	defer led.Close()

	var ticks []replay.Sample
	var expected []string
	seq := uint64(0)
	for rec, err := range led.Query(func(r ledger.Record) bool { return r.Kind == "gate_decision" }) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "query ledger: %v\n", err)
			return 2
		}
		var d orchestrator.Decision
		if err := json.Unmarshal(rec.Payload, &d); err != nil {
			fmt.Fprintf(os.Stderr, "decode decision seq %d: %v\n", rec.Seq, err)
			return 2
		}
		if d.Gate != orchestrator.GateSafety || len(d.Raws) == 0 {
			continue
		}
		if isArbitration(d) {
			continue
		}
		seq++
		ticks = append(ticks, replay.Sample{
			Tick:      seq,
			Layer:     d.Layer,
			Timestamp: d.Timestamp,
			Raws:      d.Raws,
		})
		expected = append(expected, string(d.Action))
	}
	if len(ticks) == 0 {
		fmt.Fprintln(os.Stderr, "no replayable safety decisions on the ledger")
		return 2
	}

	// The live controller seeds from the region baseline at startup; mirror
	// that just before the first recorded decision.
	prof := region.PhoenixAZ()
	reg, err := corridor.BuildRegistry(prof.CorridorSpec())
	if err != nil {
		fmt.Fprintf(os.Stderr, "build corridor: %v\n", err)
		return 2
	}
	seed := replay.Sample{
		Timestamp: ticks[0].Timestamp.Add(-time.Second),
		Raws:      prof.BaselineRaws(),
	}

	h := replay.NewHarness(reg, residual.DefaultConfig(), threshold.ModeBaseline)
	results, err := h.Replay(seed, ticks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(results, expected)
}

// isArbitration reports whether a rejection came from tick arbitration
// rather than the admission pipeline.
func isArbitration(d orchestrator.Decision) bool {
	for _, r := range d.Reasons {
		if strings.Contains(r, "already applied") || strings.Contains(r, "poisoned") {
			return true
		}
	}
	return false
}

// #endregion ledger-mode

// #region output

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.Result, expected []string) int {
	fmt.Printf("%-8s| %-10s| %-10s| %s\n", "Tick", "Expected", "Replayed", "Match")
	fmt.Printf("%-8s+%-11s+%-11s+%s\n", "--------", "-----------", "-----------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		match := "DIFF"
		if expected[i] == results[i].Action {
			match = "OK"
			matches++
		}
		fmt.Printf("%-8d| %-10s| %-10s| %s\n", results[i].Tick, expected[i], results[i].Action, match)
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output
