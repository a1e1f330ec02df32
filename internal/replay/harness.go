package replay

import (
	"errors"
	"fmt"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/threshold"
)

// #region types
// Sample is a single recorded measurement set for replay.
type Sample struct {
	Tick      uint64
	Layer     string
	Timestamp time.Time
	Raws      map[string]float64
}

// Result captures the outcome of replaying one tick through the admission
// pipeline: normalize, thresholds, residual.
type Result struct {
	Tick   uint64
	Layer  string
	Action string // "admit" | "derate" | "stop"
	Reason string

	// Threshold stage.
	Threshold threshold.Result

	// Residual after this tick (unchanged on rejection).
	V     float64
	Seq   uint64
	Drift bool
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTicks int
	Admits     int
	Derates    int
	Stops      int
	FinalV     float64
	FinalSeq   uint64
}

// #endregion types

// #region harness
// Harness replays recorded tick samples against a fresh controller. Operates
// entirely in-memory; no ledger, no stores. Deterministic: replaying the same
// fixture yields the same actions.
type Harness struct {
	registry *corridor.Registry
	eval     *threshold.Evaluator
	ctrl     *residual.Controller
	mode     threshold.Mode
}

// NewHarness builds a harness over the given corridor and tolerances.
func NewHarness(reg *corridor.Registry, cfg residual.Config, mode threshold.Mode) *Harness {
	return &Harness{
		registry: reg,
		eval:     threshold.NewEvaluator(reg),
		ctrl:     residual.NewController(cfg),
		mode:     mode,
	}
}

// FromFixture builds a harness and domain samples from a parsed fixture.
func FromFixture(f *Fixture) (*Harness, Sample, []Sample, error) {
	reg, err := corridor.BuildRegistry(f.ToSpec())
	if err != nil {
		return nil, Sample{}, nil, fmt.Errorf("build corridor: %w", err)
	}

	mode := threshold.Mode(f.Mode)
	if f.Mode == "" {
		mode = threshold.ModeBaseline
	}

	seed, err := f.Seed.ToSample()
	if err != nil {
		return nil, Sample{}, nil, fmt.Errorf("seed sample: %w", err)
	}
	ticks := make([]Sample, 0, len(f.Ticks))
	for i, ft := range f.Ticks {
		s, err := ft.ToSample()
		if err != nil {
			return nil, Sample{}, nil, fmt.Errorf("tick sample %d: %w", i, err)
		}
		ticks = append(ticks, s)
	}

	return NewHarness(reg, f.Config.ToResidualConfig(), mode), seed, ticks, nil
}

// #endregion harness

// #region replay
// Replay seeds the controller from the seed sample, then feeds every tick
// through the full admission pipeline in order: thresholds first, residual
// proposal only when they pass, so a rejected tick never mutates tracked
// state. Mirrors the live gate's ordering.
func (h *Harness) Replay(seed Sample, ticks []Sample) ([]Result, error) {
	seedCoords, err := corridor.NormalizeAll(h.registry, seed.Raws, seed.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("normalize seed: %w", err)
	}
	if _, err := h.ctrl.Seed(seedCoords, seed.Timestamp); err != nil {
		return nil, fmt.Errorf("seed controller: %w", err)
	}

	results := make([]Result, 0, len(ticks))
	for _, s := range ticks {
		r := h.replayTick(s)
		cur := h.ctrl.Current()
		r.V = cur.V
		r.Seq = cur.Seq
		results = append(results, r)
	}
	return results, nil
}

func (h *Harness) replayTick(s Sample) Result {
	r := Result{Tick: s.Tick, Layer: s.Layer}

	coords, err := corridor.NormalizeAll(h.registry, s.Raws, s.Timestamp)
	if err != nil {
		r.Action = "derate"
		r.Reason = fmt.Sprintf("normalization: %v", err)
		return r
	}

	thr, err := h.eval.Evaluate(coords, h.mode)
	if err != nil {
		r.Action = "derate"
		r.Reason = fmt.Sprintf("threshold: %v", err)
		return r
	}
	r.Threshold = thr
	if !thr.LegalOK {
		r.Action = "derate"
		r.Reason = fmt.Sprintf("legal limit exceeded: %v", thr.Violations)
		return r
	}
	if thr.GoldConsulted && !thr.GoldOK {
		r.Action = "derate"
		r.Reason = fmt.Sprintf("gold limit exceeded: %v", thr.GoldViolations)
		return r
	}

	state, err := h.ctrl.Propose(coords, s.Timestamp)
	if err != nil {
		if errors.Is(err, residual.ErrResidualIncrease) {
			r.Action = "derate"
		} else {
			r.Action = "stop"
		}
		r.Reason = err.Error()
		return r
	}

	r.Action = "admit"
	r.Drift = state.Drift
	return r
}

// #endregion replay

// #region summarize
// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalTicks: len(results)}
	for _, r := range results {
		switch r.Action {
		case "admit":
			s.Admits++
		case "derate":
			s.Derates++
		case "stop":
			s.Stops++
		}
		s.FinalV = r.V
		s.FinalSeq = r.Seq
	}
	return s
}

// #endregion summarize
