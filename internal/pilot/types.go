package pilot

import (
	"errors"
	"time"
)

// #region category
// Category enumerates the pilot indicator streams.
type Category string

const (
	CategoryStructural Category = "structural"
	CategoryTreatment  Category = "treatment"
	CategoryFouling    Category = "fouling"
	CategorySocial     Category = "social"
)

// Categories lists every stream the aggregator requires, in verdict order.
var Categories = []Category{CategoryStructural, CategoryTreatment, CategoryFouling, CategorySocial}

// #endregion category

// #region record
// IndicatorRecord is one longitudinal observation. Records are append-only;
// a newer record in the same category supersedes, never mutates.
type IndicatorRecord struct {
	ID          string
	Category    Category
	Timestamp   time.Time
	Pass        bool
	Score       float64 // optional scored outcome; Pass is authoritative
	EvidenceRef string
}

// #endregion record

// #region verdict
// Verdict holds the per-category and combined readiness outcome.
type Verdict struct {
	HydraulicStructuralOK bool
	TreatmentSatOK        bool
	FoulingOMOK           bool
	SocialGovernanceOK    bool
	PilotScaleUpOK        bool
	Reasons               []string
}

// #endregion verdict

// #region errors

// ErrCoverageGap: the observation window is shorter than the configured
// minimum or a category has a data gap longer than the configured maximum.
// The gate rejects evaluation rather than defaulting to pass or fail.
var ErrCoverageGap = errors.New("pilot: coverage gap")

// #endregion errors
