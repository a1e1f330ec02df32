package residual

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
)

// #region config
// Config holds the controller tolerances.
type Config struct {
	// Epsilon absorbs floating-point noise in the monotonicity check. It must
	// never mask a genuine upward trend; see TrendWindow.
	Epsilon float64
	// StalenessBound is the maximum age of the last accepted update before
	// admissions are refused.
	StalenessBound time.Duration
	// TrendWindow is the number of consecutive accepted updates with a strict
	// (sub-epsilon) residual increase that flags drift.
	TrendWindow int
}

// DefaultConfig returns the documented tolerances: epsilon 1e-9, 30s
// staleness bound, drift flagged after 5 consecutive creeping accepts.
func DefaultConfig() Config {
	return Config{
		Epsilon:        1e-9,
		StalenessBound: 30 * time.Second,
		TrendWindow:    5,
	}
}

// #endregion config

// #region controller
// Controller enforces the monotone residual invariant. All mutation goes
// through Seed and Propose under a single mutex so concurrent control layers
// are evaluated against a consistent V and applied in a strict total order.
// Readers take lock-free snapshots of the last accepted state.
type Controller struct {
	mu      sync.Mutex
	current atomic.Pointer[State]
	config  Config
	seq     uint64
	// consecutive accepted updates whose V strictly increased (within epsilon)
	driftStreak int
}

// NewController creates an unseeded controller.
func NewController(config Config) *Controller {
	if config.Epsilon <= 0 {
		config.Epsilon = DefaultConfig().Epsilon
	}
	if config.TrendWindow <= 0 {
		config.TrendWindow = DefaultConfig().TrendWindow
	}
	return &Controller{config: config}
}

// Current returns the last accepted residual snapshot, or nil before seeding.
// Safe for concurrent use with Propose; the snapshot is immutable.
func (c *Controller) Current() *State {
	return c.current.Load()
}

// #endregion controller

// #region seed
// Seed computes the first residual and enters tracking. Fails with
// ErrEmptyCorridor when no coordinates are supplied and ErrCorridorRange when
// any coordinate or weight is out of domain.
func (c *Controller) Seed(coords []corridor.RiskCoordinate, ts time.Time) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := compute(coords)
	if err != nil {
		return nil, err
	}

	c.seq++
	s := &State{
		Coords:    append([]corridor.RiskCoordinate(nil), coords...),
		V:         v,
		Timestamp: ts,
		Seq:       c.seq,
	}
	c.driftStreak = 0
	c.current.Store(s)
	return s, nil
}

// #endregion seed

// #region propose
// Propose evaluates a candidate coordinate set against the current residual.
// Admission requires V_next <= V_current + epsilon and every coordinate in
// range; there is no privileged bypass for advisory-generated candidates. On
// rejection the controller state is unchanged and the candidate is discarded:
// the caller must derate/stop and may re-propose a fresh candidate next tick.
func (c *Controller) Propose(coords []corridor.RiskCoordinate, ts time.Time) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current.Load()
	if cur == nil {
		return nil, ErrNotSeeded
	}

	// Fail closed on stale corridor data.
	if ts.Sub(cur.Timestamp) > c.config.StalenessBound {
		return nil, fmt.Errorf("%w: last accept %s, proposal %s",
			ErrStaleResidual, cur.Timestamp.Format(time.RFC3339), ts.Format(time.RFC3339))
	}

	// A candidate must span exactly the tracked coordinate set: V over a
	// different parameter set is a different function, and dropping a
	// parameter would silently shrink the envelope.
	if err := sameCoverage(cur.Coords, coords); err != nil {
		return nil, err
	}

	v, err := compute(coords)
	if err != nil {
		if errors.Is(err, ErrCorridorRange) {
			// In the propose path an out-of-domain coordinate is a hard
			// corridor violation, not a configuration fault.
			return nil, fmt.Errorf("%w: %v", ErrCorridorExceeded, err)
		}
		return nil, err
	}

	if v > cur.V+c.config.Epsilon {
		return nil, fmt.Errorf("%w: V_next=%g > V_current=%g + eps=%g",
			ErrResidualIncrease, v, cur.V, c.config.Epsilon)
	}

	// Sub-epsilon creep still trends upward; repeated creep is flagged rather
	// than hidden by the tolerance.
	if v > cur.V {
		c.driftStreak++
	} else {
		c.driftStreak = 0
	}

	c.seq++
	next := &State{
		Coords:    append([]corridor.RiskCoordinate(nil), coords...),
		V:         v,
		Timestamp: ts,
		Seq:       c.seq,
		Drift:     c.driftStreak >= c.config.TrendWindow,
	}
	c.current.Store(next)
	return next, nil
}

// sameCoverage rejects a candidate whose parameter set differs from the
// tracked one, in either direction.
func sameCoverage(tracked, candidate []corridor.RiskCoordinate) error {
	names := make(map[string]struct{}, len(tracked))
	for _, c := range tracked {
		names[c.Parameter] = struct{}{}
	}
	for _, c := range candidate {
		if _, ok := names[c.Parameter]; !ok {
			return fmt.Errorf("%w: parameter %s not in tracked corridor", ErrCorridorExceeded, c.Parameter)
		}
		delete(names, c.Parameter)
	}
	for name := range names {
		return fmt.Errorf("%w: tracked parameter %s missing from candidate", ErrCorridorExceeded, name)
	}
	return nil
}

// #endregion propose
