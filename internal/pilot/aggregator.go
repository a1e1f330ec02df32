package pilot

import (
	"fmt"
	"time"
)

// #region config
// Config holds the observation-window requirements.
type Config struct {
	// MinWindow is the minimum observation span: at least one full seasonal
	// cycle. Histories shorter than this reject evaluation outright.
	MinWindow time.Duration
	// MaxGap is the longest tolerated stretch without a record in any single
	// category inside the window.
	MaxGap time.Duration
}

// DefaultConfig returns one seasonal cycle (365 days) with a 45-day gap cap.
func DefaultConfig() Config {
	return Config{
		MinWindow: 365 * 24 * time.Hour,
		MaxGap:    45 * 24 * time.Hour,
	}
}

// #endregion config

// #region aggregator
// Aggregator combines the longitudinal indicator streams into a single
// readiness verdict. Missing coverage is an error, never an implicit verdict.
type Aggregator struct {
	config Config
}

// NewAggregator creates an aggregator with the given window requirements.
func NewAggregator(config Config) *Aggregator {
	return &Aggregator{config: config}
}

// Evaluate combines per-category records over the window ending at asOf.
// Preconditions per category: records must span the full minimum window with
// no gap longer than MaxGap, otherwise ErrCoverageGap names the category.
// A category verdict is true only when every record in the window passes.
// PilotScaleUpOK is the AND of all four category verdicts.
func (a *Aggregator) Evaluate(records map[Category][]IndicatorRecord, asOf time.Time) (Verdict, error) {
	windowStart := asOf.Add(-a.config.MinWindow)
	var v Verdict

	for _, cat := range Categories {
		recs := records[cat]
		ok, reason, err := a.evaluateCategory(cat, recs, windowStart, asOf)
		if err != nil {
			return Verdict{}, err
		}
		switch cat {
		case CategoryStructural:
			v.HydraulicStructuralOK = ok
		case CategoryTreatment:
			v.TreatmentSatOK = ok
		case CategoryFouling:
			v.FoulingOMOK = ok
		case CategorySocial:
			v.SocialGovernanceOK = ok
		}
		if reason != "" {
			v.Reasons = append(v.Reasons, reason)
		}
	}

	v.PilotScaleUpOK = v.HydraulicStructuralOK && v.TreatmentSatOK &&
		v.FoulingOMOK && v.SocialGovernanceOK
	return v, nil
}

// EvaluateStore loads every category's window from the store and aggregates.
func (a *Aggregator) EvaluateStore(store *Store, asOf time.Time) (Verdict, error) {
	windowStart := asOf.Add(-a.config.MinWindow)
	records := make(map[Category][]IndicatorRecord, len(Categories))
	for _, cat := range Categories {
		recs, err := store.ListWindow(cat, windowStart, asOf)
		if err != nil {
			return Verdict{}, err
		}
		records[cat] = recs
	}
	return a.Evaluate(records, asOf)
}

// #endregion aggregator

// #region category
// evaluateCategory enforces coverage, then requires every record to pass.
// Records are assumed oldest-first; out-of-order input is sorted by the
// store, fixtures must do the same.
func (a *Aggregator) evaluateCategory(cat Category, recs []IndicatorRecord, windowStart, asOf time.Time) (bool, string, error) {
	if len(recs) == 0 {
		return false, "", fmt.Errorf("%w: category %s has no records in window [%s, %s]",
			ErrCoverageGap, cat, windowStart.Format(time.RFC3339), asOf.Format(time.RFC3339))
	}

	// Coverage: the first record must sit within MaxGap of the window start
	// (the history must reach back a full cycle), the last within MaxGap of
	// asOf, and no two consecutive records may be further apart than MaxGap.
	if recs[0].Timestamp.Sub(windowStart) > a.config.MaxGap {
		return false, "", fmt.Errorf("%w: category %s history starts %s, window starts %s",
			ErrCoverageGap, cat, recs[0].Timestamp.Format(time.RFC3339), windowStart.Format(time.RFC3339))
	}
	if asOf.Sub(recs[len(recs)-1].Timestamp) > a.config.MaxGap {
		return false, "", fmt.Errorf("%w: category %s last record %s is stale at %s",
			ErrCoverageGap, cat, recs[len(recs)-1].Timestamp.Format(time.RFC3339), asOf.Format(time.RFC3339))
	}
	for i := 1; i < len(recs); i++ {
		if gap := recs[i].Timestamp.Sub(recs[i-1].Timestamp); gap > a.config.MaxGap {
			return false, "", fmt.Errorf("%w: category %s gap of %s after %s",
				ErrCoverageGap, cat, gap, recs[i-1].Timestamp.Format(time.RFC3339))
		}
	}

	for _, r := range recs {
		if !r.Pass {
			return false, fmt.Sprintf("category %s failed at %s (evidence %s)",
				cat, r.Timestamp.Format(time.RFC3339), r.EvidenceRef), nil
		}
	}
	return true, "", nil
}

// #endregion category
