package orchestrator

// #region imports
import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/impact"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/lca"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/ledger"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/pilot"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/threshold"
)

// #endregion

// #region orchestrator-struct

// Orchestrator is the top-level decision gate. It composes corridor
// normalization, the monotone residual controller, threshold evaluation, LCA
// and pilot evidence into three gates, arbitrates concurrent control layers
// per tick, and appends every decision to the audit ledger before the verdict
// is released. A failed append withholds the verdict: no unaudited admits.
type Orchestrator struct {
	registry   *corridor.Registry
	residual   *residual.Controller
	threshold  *threshold.Evaluator
	lca        *lca.Evaluator
	pilot      *pilot.Aggregator
	pilotStore *pilot.Store
	ledger     *ledger.Ledger
	logger     *slog.Logger

	mu    sync.Mutex
	ticks map[uint64]*tickState
}

// tickState tracks per-tick arbitration: whether a proposal was already
// applied, and the strictest priority that forced a derate/stop. A
// derate/stop at priority p suppresses every lower-priority layer for the
// rest of the tick.
type tickState struct {
	applied  bool
	poisonBy int
}

// Deps bundles the orchestrator's collaborators. Ledger and Registry are
// mandatory; a nil Logger falls back to slog.Default().
type Deps struct {
	Registry   *corridor.Registry
	Residual   *residual.Controller
	Threshold  *threshold.Evaluator
	LCA        *lca.Evaluator
	Pilot      *pilot.Aggregator
	PilotStore *pilot.Store
	Ledger     *ledger.Ledger
	Logger     *slog.Logger
}

// #endregion

// #region constructor

// New creates a fully wired orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, errors.New("orchestrator: nil registry")
	}
	if deps.Ledger == nil {
		return nil, errors.New("orchestrator: nil ledger")
	}
	if deps.Residual == nil {
		return nil, errors.New("orchestrator: nil residual controller")
	}
	if deps.LCA == nil {
		return nil, errors.New("orchestrator: nil lca evaluator")
	}
	if deps.PilotStore == nil {
		return nil, errors.New("orchestrator: nil pilot store")
	}
	if deps.Threshold == nil {
		deps.Threshold = threshold.NewEvaluator(deps.Registry)
	}
	if deps.Pilot == nil {
		deps.Pilot = pilot.NewAggregator(pilot.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		registry:   deps.Registry,
		residual:   deps.Residual,
		threshold:  deps.Threshold,
		lca:        deps.LCA,
		pilot:      deps.Pilot,
		pilotStore: deps.PilotStore,
		ledger:     deps.Ledger,
		logger:     deps.Logger,
		ticks:      make(map[uint64]*tickState),
	}, nil
}

// #endregion

// #region safety-gate

// SafetyGate evaluates a baseline operating move: legal thresholds plus the
// monotone residual invariant. Rejection demands derate (residual increase)
// or stop (corridor exceeded, stale data). The decision is appended to the
// audit ledger before it is returned; if the append fails the verdict is
// withheld and the caller must treat the move as rejected.
func (o *Orchestrator) SafetyGate(move Move) (Decision, error) {
	return o.evaluateMove(GateSafety, move, threshold.ModeBaseline)
}

// ScaleUpGate evaluates a move under scale-up scrutiny: everything SafetyGate
// checks, plus gold thresholds and a satisfied pilot evidence window.
func (o *Orchestrator) ScaleUpGate(move Move) (Decision, error) {
	return o.evaluateMove(GateScaleUp, move, threshold.ModeScaleUp)
}

func (o *Orchestrator) evaluateMove(gate string, move Move, mode threshold.Mode) (Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d := Decision{
		ID:        uuid.NewString(),
		Gate:      gate,
		Layer:     move.Layer,
		Tick:      move.Tick,
		Action:    ActionAdmit,
		Timestamp: move.Timestamp,
		InputRefs: inputRefs(move),
		Raws:      move.Raws,
	}

	ts := o.tick(move.Tick)
	switch {
	case ts.applied:
		d.reject(ActionDerate, fmt.Sprintf("tick %d already applied a proposal", move.Tick))
	case ts.poisonBy < move.Priority:
		d.reject(ActionDerate, fmt.Sprintf("tick %d poisoned by priority %d derate/stop", move.Tick, ts.poisonBy))
	default:
		o.checkMove(&d, move, mode)
	}

	if !d.Verdict {
		// The rejecting layer derates or stops; everything below it stays out
		// for the rest of the tick.
		if move.Priority < ts.poisonBy {
			ts.poisonBy = move.Priority
		}
	} else {
		ts.applied = true
	}

	return o.record(d)
}

// checkMove runs the admission pipeline. The residual controller mutates
// last, so a threshold or pilot rejection leaves no trace in tracked state.
func (o *Orchestrator) checkMove(d *Decision, move Move, mode threshold.Mode) {
	coords, err := corridor.NormalizeAll(o.registry, move.Raws, move.Timestamp)
	if err != nil {
		d.reject(ActionDerate, fmt.Sprintf("normalization: %v", err))
		return
	}

	thr, err := o.threshold.Evaluate(coords, mode)
	if err != nil {
		d.reject(ActionDerate, fmt.Sprintf("threshold: %v", err))
		return
	}
	if !thr.LegalOK {
		d.reject(ActionDerate, fmt.Sprintf("legal limit exceeded: %v", thr.Violations))
	}
	if thr.GoldConsulted && !thr.GoldOK {
		d.reject(ActionDerate, fmt.Sprintf("gold limit exceeded: %v", thr.GoldViolations))
	}

	if mode.Elevated() {
		pv, err := o.pilot.EvaluateStore(o.pilotStore, move.Timestamp)
		if err != nil {
			d.reject(ActionDerate, fmt.Sprintf("pilot evidence: %v", err))
		} else if !pv.PilotScaleUpOK {
			d.reject(ActionDerate, fmt.Sprintf("pilot not ready: %v", pv.Reasons))
		}
	}
	if len(d.Reasons) > 0 {
		return
	}

	state, err := o.residual.Propose(coords, move.Timestamp)
	if err != nil {
		switch {
		case errors.Is(err, residual.ErrResidualIncrease):
			d.reject(ActionDerate, err.Error())
		default:
			// Corridor exceeded, stale data, unseeded: nothing safe to fall
			// back to at this layer.
			d.reject(ActionStop, err.Error())
		}
		return
	}

	d.Verdict = true
	d.Drift = state.Drift
	d.InputRefs = append(d.InputRefs, fmt.Sprintf("residual_seq:%d", state.Seq))
}

// #endregion

// #region deployment-gate

// DeploymentGate decides full deployment for a region: the LCA verdict must
// hold for every declared functional unit and the pilot evidence window must
// be satisfied. It does not consult the residual controller; deployment is a
// planning decision, not an operating move.
func (o *Orchestrator) DeploymentGate(region string, functionalUnits []string, asOf time.Time) (Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d := Decision{
		ID:        uuid.NewString(),
		Gate:      GateDeployment,
		Verdict:   true,
		Action:    ActionAdmit,
		Timestamp: asOf,
	}
	if len(functionalUnits) == 0 {
		d.reject(ActionStop, "no functional units declared")
	}

	for _, fu := range functionalUnits {
		d.InputRefs = append(d.InputRefs, "lca:"+region+"/"+fu)
		v, err := o.lca.Evaluate(region, fu)
		if err != nil {
			d.reject(ActionStop, fmt.Sprintf("lca %s: %v", fu, err))
			continue
		}
		if !v.DeploymentOK {
			d.reject(ActionStop, fmt.Sprintf("lca %s: %v", fu, v.Reasons))
		}
	}

	d.InputRefs = append(d.InputRefs, "pilot:window")
	pv, err := o.pilot.EvaluateStore(o.pilotStore, asOf)
	if err != nil {
		d.reject(ActionStop, fmt.Sprintf("pilot evidence: %v", err))
	} else if !pv.PilotScaleUpOK {
		d.reject(ActionStop, fmt.Sprintf("pilot not ready: %v", pv.Reasons))
	}

	return o.record(d)
}

// #endregion

// #region telemetry

// RecordImpact appends an eco-impact summary to the audit ledger as a
// telemetry record. Impact never influences admission; it is evidence for the
// karma accounting downstream.
func (o *Orchestrator) RecordImpact(result impact.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("orchestrator: encode impact: %w", err)
	}
	if _, err := o.ledger.Append("telemetry", payload); err != nil {
		return fmt.Errorf("orchestrator: audit append: %w", err)
	}
	o.logger.Info("impact recorded",
		"node", result.NodeID, "mass_removed", result.MassRemoved, "karma_bytes", result.KarmaBytes)
	return nil
}

// #endregion telemetry

// #region record

// record appends the decision to the audit ledger and only then releases it.
// On append failure the verdict is withheld entirely.
func (o *Orchestrator) record(d Decision) (Decision, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return Decision{}, fmt.Errorf("orchestrator: encode decision: %w", err)
	}
	if _, err := o.ledger.Append("gate_decision", payload); err != nil {
		o.logger.Error("audit append failed, verdict withheld",
			"gate", d.Gate, "decision_id", d.ID, "err", err)
		return Decision{}, fmt.Errorf("orchestrator: audit append: %w", err)
	}

	o.logger.Info("gate decision",
		"gate", d.Gate, "decision_id", d.ID, "verdict", d.Verdict,
		"action", d.Action, "drift", d.Drift, "reasons", len(d.Reasons))
	return d, nil
}

// #endregion

// #region helpers

func (d *Decision) reject(action Action, reason string) {
	d.Verdict = false
	// Stop outranks derate once any check demands it.
	if d.Action != ActionStop {
		d.Action = action
	}
	d.Reasons = append(d.Reasons, reason)
}

// tickHorizon is how many ticks of arbitration state are retained behind the
// newest tick seen. Stragglers older than that are a config fault upstream.
const tickHorizon = 64

func (o *Orchestrator) tick(n uint64) *tickState {
	ts, ok := o.ticks[n]
	if !ok {
		ts = &tickState{poisonBy: math.MaxInt}
		o.ticks[n] = ts
		if n > tickHorizon {
			for k := range o.ticks {
				if k < n-tickHorizon {
					delete(o.ticks, k)
				}
			}
		}
	}
	return ts
}

func inputRefs(move Move) []string {
	refs := make([]string, 0, len(move.Raws))
	for name := range move.Raws {
		refs = append(refs, "param:"+name)
	}
	sort.Strings(refs)
	return refs
}

// #endregion
