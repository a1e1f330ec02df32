package threshold

import (
	"fmt"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
)

// #region mode
// Mode selects which limits bind a decision.
type Mode string

const (
	ModeBaseline Mode = "BASELINE"
	ModeScaleUp  Mode = "SCALE_UP"
	ModeBonus    Mode = "BONUS"
)

// Elevated reports whether gold limits are consulted for this mode.
func (m Mode) Elevated() bool {
	return m == ModeScaleUp || m == ModeBonus
}

// #endregion mode

// #region result
// Result reports the legal and gold verdicts for one coordinate snapshot.
// LegalOK is always computed. GoldOK is always computed too, but only
// consulted for decisions in elevated modes; in baseline mode a gold failure
// does not block.
type Result struct {
	LegalOK        bool
	GoldOK         bool
	GoldConsulted  bool
	Violations     []string // parameter names outside their legal limit
	GoldViolations []string // parameter names outside their gold limit
}

// #endregion result

// #region evaluator
// Evaluator checks raw values against legal and gold limits. It is a pure
// function of the snapshot it is given and never mutates its input.
type Evaluator struct {
	registry *corridor.Registry
}

// NewEvaluator creates an evaluator over the given parameter registry.
func NewEvaluator(registry *corridor.Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate checks every coordinate's underlying raw value against its
// parameter limits. An unregistered parameter fails the whole call: limits
// are never defaulted.
func (e *Evaluator) Evaluate(coords []corridor.RiskCoordinate, mode Mode) (Result, error) {
	res := Result{
		LegalOK:       true,
		GoldOK:        true,
		GoldConsulted: mode.Elevated(),
	}

	for _, c := range coords {
		p, err := e.registry.Get(c.Parameter)
		if err != nil {
			return Result{}, fmt.Errorf("threshold evaluate: %w", err)
		}
		if !withinLimit(p, c.Raw, p.LegalLimit) {
			res.LegalOK = false
			res.Violations = append(res.Violations, p.Name)
		}
		if !withinLimit(p, c.Raw, p.GoldLimit) {
			res.GoldOK = false
			res.GoldViolations = append(res.GoldViolations, p.Name)
		}
	}
	return res, nil
}

// #endregion evaluator

// #region helpers
// withinLimit applies the parameter direction: a higher-is-worse value must
// stay at or below the limit, a lower-is-worse value at or above it.
func withinLimit(p corridor.Parameter, raw, limit float64) bool {
	if p.Direction == corridor.LowerWorse {
		return raw >= limit
	}
	return raw <= limit
}

// #endregion helpers
