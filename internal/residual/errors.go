package residual

import (
	"errors"
	"fmt"
)

// #region errors

// ErrEmptyCorridor: no coordinates were supplied. No corridor, no operation.
// Fatal to the proposing call.
var ErrEmptyCorridor = errors.New("residual: empty corridor")

// ErrCorridorRange: a coordinate or weight is outside its domain. Rejects the
// single proposal; the controller itself stays healthy.
var ErrCorridorRange = errors.New("residual: coordinate out of corridor range")

// ErrResidualIncrease: the candidate residual exceeds the accepted residual
// by more than the configured tolerance. The calling layer must derate/stop.
var ErrResidualIncrease = errors.New("residual: residual increase")

// ErrCorridorExceeded: a proposed candidate violates the corridor domain —
// a coordinate outside [0,1], a negative weight, or a parameter set that
// does not match the tracked corridor. Stop, not just derate.
var ErrCorridorExceeded = errors.New("residual: hard corridor limit exceeded")

// ErrStaleResidual: the last accepted residual update is older than the
// staleness bound. Admissions are refused until fresh corridor data arrives.
var ErrStaleResidual = errors.New("residual: stale corridor data")

// ErrNotSeeded: propose called before seed.
var ErrNotSeeded = errors.New("residual: controller not seeded")

func rangeErr(param string, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrCorridorRange, param, detail)
}

// #endregion errors
