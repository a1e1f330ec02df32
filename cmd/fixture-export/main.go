package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/ledger"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/orchestrator"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/region"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/replay"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
)

// #region main

// fixture-export turns the safety decisions recorded on a live ledger into a
// self-contained replay fixture, so a production incident can be replayed and
// bisected offline.
func main() {
	ledgerPath := flag.String("ledger", "", "path to gatekeeper ledger db")
	outPath := flag.String("out", "fixture.json", "output fixture path")
	desc := flag.String("desc", "exported from ledger", "fixture description")
	flag.Parse()

	if *ledgerPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --ledger path/to/gatekeeper_ledger.db [--out fixture.json]")
		os.Exit(2)
	}

	if err := export(*ledgerPath, *outPath, *desc); err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

// #endregion main

// #region export

func export(ledgerPath, outPath, desc string) error {
	signer, err := ledger.NewHMACSigner("export", []byte("export"))
	if err != nil {
		return err
	}
	led, err := ledger.Open(ledgerPath, signer, signer)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	prof := region.PhoenixAZ()
	cfg := residual.DefaultConfig()
	f := replay.Fixture{
		Description: desc,
		Mode:        "BASELINE",
		Corridor:    corridorParams(prof),
		Config: replay.FixtureConfig{
			Epsilon:          cfg.Epsilon,
			StalenessBoundMS: cfg.StalenessBound.Milliseconds(),
			TrendWindow:      cfg.TrendWindow,
		},
	}

	var tick uint64
	for rec, err := range led.Query(func(r ledger.Record) bool { return r.Kind == "gate_decision" }) {
		if err != nil {
			return fmt.Errorf("query ledger: %w", err)
		}
		var d orchestrator.Decision
		if err := json.Unmarshal(rec.Payload, &d); err != nil {
			return fmt.Errorf("decode decision seq %d: %w", rec.Seq, err)
		}
		if d.Gate != orchestrator.GateSafety || len(d.Raws) == 0 {
			continue
		}

		if tick == 0 {
			// Seed the fixture the way the live gate seeds: region baseline
			// just before the first decision.
			f.Seed = replay.FixtureSample{
				Timestamp: d.Timestamp.Add(-time.Second).Format(time.RFC3339),
				Raws:      prof.BaselineRaws(),
			}
		}
		tick++
		f.Ticks = append(f.Ticks, replay.FixtureSample{
			Tick:      tick,
			Layer:     d.Layer,
			Timestamp: d.Timestamp.Format(time.RFC3339),
			Raws:      d.Raws,
		})
		f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{
			Tick:   tick,
			Action: string(d.Action),
		})
	}
	if tick == 0 {
		return fmt.Errorf("no replayable safety decisions on the ledger")
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return os.WriteFile(outPath, data, 0o644)
}

// corridorParams mirrors the region corridor into fixture form.
func corridorParams(prof region.Profile) []replay.FixtureParameter {
	spec := prof.CorridorSpec()
	out := make([]replay.FixtureParameter, 0, len(spec.Corridor))
	for _, r := range spec.Corridor {
		out = append(out, replay.FixtureParameter{
			ParameterName:    r.ParameterName,
			Unit:             r.Unit,
			Direction:        r.Direction,
			LegalLimit:       r.LegalLimit,
			GoldLimit:        r.GoldLimit,
			NormalizationMin: r.NormalizationMin,
			NormalizationMax: r.NormalizationMax,
			Weight:           r.Weight,
			ChannelIndex:     r.ChannelIndex,
		})
	}
	return out
}

// #endregion export
