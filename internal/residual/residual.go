package residual

import (
	"fmt"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
)

// #region state
// State is an immutable snapshot of the weighted residual V = Σ w_j * r_j
// over an ordered coordinate set. Once constructed it is never mutated; the
// controller replaces its current pointer on every accepted update.
type State struct {
	Coords    []corridor.RiskCoordinate
	V         float64
	Timestamp time.Time
	Seq       uint64 // monotonic accept sequence number
	// Drift is set when the residual has crept upward (within tolerance) for
	// TrendWindow consecutive accepted updates. Accepted but flagged.
	Drift bool
}

// #endregion state

// #region compute
// compute validates every coordinate and evaluates V. Coordinates outside
// [0,1] and negative weights are ErrCorridorRange; callers decide whether
// that is a configuration fault or a corridor violation.
func compute(coords []corridor.RiskCoordinate) (float64, error) {
	if len(coords) == 0 {
		return 0, ErrEmptyCorridor
	}
	v := 0.0
	for _, c := range coords {
		if c.R < 0 || c.R > 1 {
			return 0, rangeErr(c.Parameter, fmt.Sprintf("r=%g outside [0,1]", c.R))
		}
		if c.Weight < 0 {
			return 0, rangeErr(c.Parameter, fmt.Sprintf("negative weight %g", c.Weight))
		}
		v += c.R * c.Weight
	}
	return v, nil
}

// #endregion compute
