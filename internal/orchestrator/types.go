package orchestrator

// #region imports
import (
	"time"
)

// #endregion

// #region move

// Move is one control layer's proposed operating point for a tick. Raw
// measurements are normalized against the corridor registry inside the gate;
// layers never pre-normalize.
type Move struct {
	Layer     string // e.g. "thermal", "dosing", "scheduling"
	Priority  int    // lower number = higher priority
	Tick      uint64 // control tick; at most one proposal is applied per tick
	Timestamp time.Time
	Raws      map[string]float64 // parameter name -> raw measurement
}

// #endregion

// #region action

// Action is the fail-safe response demanded from the calling layer.
type Action string

const (
	ActionAdmit  Action = "admit"
	ActionDerate Action = "derate"
	ActionStop   Action = "stop"
)

// #endregion

// #region decision

// Gate names as recorded in decisions.
const (
	GateSafety     = "safety"
	GateScaleUp    = "scale_up"
	GateDeployment = "deployment"
)

// Decision is the structured verdict of one gate evaluation. Every evaluation
// produces one and appends it to the audit ledger, rejections included.
type Decision struct {
	ID        string    `json:"id"`
	Gate      string    `json:"gate"`
	Layer     string    `json:"layer,omitempty"`
	Tick      uint64    `json:"tick,omitempty"`
	Verdict   bool      `json:"verdict"`
	Action    Action    `json:"action"`
	Reasons   []string  `json:"reasons"`
	InputRefs []string  `json:"input_refs"` // inputs consulted, by reference
	Drift     bool      `json:"drift"`      // residual creep flagged on an admit
	Timestamp time.Time `json:"timestamp"`

	// Raws are the raw measurements consulted for move gates, recorded by
	// value so a decision can be re-derived from the ledger alone.
	Raws map[string]float64 `json:"raws,omitempty"`
}

// #endregion
