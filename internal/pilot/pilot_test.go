package pilot

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// monthlyRecords produces one passing record per 30 days covering the full
// window back from asOf.
func monthlyRecords(cat Category, asOf time.Time, months int, pass bool) []IndicatorRecord {
	recs := make([]IndicatorRecord, 0, months)
	for i := months; i >= 1; i-- {
		recs = append(recs, IndicatorRecord{
			ID:          fmt.Sprintf("%s-%d", cat, i),
			Category:    cat,
			Timestamp:   asOf.Add(-time.Duration(i) * 30 * 24 * time.Hour),
			Pass:        pass,
			Score:       0.9,
			EvidenceRef: "ref/" + string(cat),
		})
	}
	return recs
}

func fullCoverage(asOf time.Time) map[Category][]IndicatorRecord {
	m := make(map[Category][]IndicatorRecord)
	for _, cat := range Categories {
		m[cat] = monthlyRecords(cat, asOf, 13, true)
	}
	return m
}

func TestAllCategoriesPass(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(DefaultConfig())

	v, err := a.Evaluate(fullCoverage(asOf), asOf)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !v.PilotScaleUpOK {
		t.Fatalf("expected pilot readiness, got %+v", v)
	}
	if !v.HydraulicStructuralOK || !v.TreatmentSatOK || !v.FoulingOMOK || !v.SocialGovernanceOK {
		t.Fatalf("all category verdicts should pass: %+v", v)
	}
}

func TestShortHistoryAlwaysCoverageError(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(DefaultConfig())

	// Only 3 months of history: must error, never silently pass.
	records := fullCoverage(asOf)
	records[CategoryStructural] = monthlyRecords(CategoryStructural, asOf, 3, true)

	_, err := a.Evaluate(records, asOf)
	if !errors.Is(err, ErrCoverageGap) {
		t.Fatalf("expected ErrCoverageGap for short history, got %v", err)
	}
}

func TestMissingCategoryIsCoverageError(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(DefaultConfig())

	records := fullCoverage(asOf)
	delete(records, CategorySocial)

	_, err := a.Evaluate(records, asOf)
	if !errors.Is(err, ErrCoverageGap) {
		t.Fatalf("expected ErrCoverageGap for missing category, got %v", err)
	}
}

func TestMidWindowGapIsCoverageError(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(DefaultConfig())

	records := fullCoverage(asOf)
	// Remove three consecutive months from fouling: a 120-day silent gap.
	recs := records[CategoryFouling]
	records[CategoryFouling] = append(append([]IndicatorRecord{}, recs[:4]...), recs[7:]...)

	_, err := a.Evaluate(records, asOf)
	if !errors.Is(err, ErrCoverageGap) {
		t.Fatalf("expected ErrCoverageGap for mid-window gap, got %v", err)
	}
}

func TestStaleTailIsCoverageError(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(DefaultConfig())

	records := fullCoverage(asOf)
	// Drop the two most recent treatment records: last observation 90 days old.
	recs := records[CategoryTreatment]
	records[CategoryTreatment] = recs[:len(recs)-2]

	_, err := a.Evaluate(records, asOf)
	if !errors.Is(err, ErrCoverageGap) {
		t.Fatalf("expected ErrCoverageGap for stale tail, got %v", err)
	}
}

func TestFailingRecordFailsCategoryNotWhole(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAggregator(DefaultConfig())

	records := fullCoverage(asOf)
	records[CategorySocial][5].Pass = false

	v, err := a.Evaluate(records, asOf)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v.SocialGovernanceOK {
		t.Fatal("failed record must fail the category verdict")
	}
	if !v.HydraulicStructuralOK {
		t.Fatal("other categories unaffected")
	}
	if v.PilotScaleUpOK {
		t.Fatal("combined verdict is AND of categories")
	}
	if len(v.Reasons) == 0 {
		t.Fatal("category failure must carry a reason")
	}
}

func TestStoreOrdersSubSecondRecords(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "pilot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// A whole-second timestamp must sort before one half a second later,
	// and both must satisfy the window predicate at their exact bounds.
	for i, ts := range []time.Time{base.Add(500 * time.Millisecond), base} {
		if _, err := s.Append(IndicatorRecord{
			ID:        fmt.Sprintf("sub-%d", i),
			Category:  CategoryStructural,
			Timestamp: ts,
			Pass:      true,
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ListWindow(CategoryStructural, base, base.Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both records inside the window, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base) || !got[1].Timestamp.Equal(base.Add(500*time.Millisecond)) {
		t.Fatalf("records misordered: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewStore(filepath.Join(t.TempDir(), "pilot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	for _, cat := range Categories {
		for _, rec := range monthlyRecords(cat, asOf, 13, true) {
			rec.ID = "" // let the store assign one
			if _, err := s.Append(rec); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
	}

	a := NewAggregator(DefaultConfig())
	v, err := a.EvaluateStore(s, asOf)
	if err != nil {
		t.Fatalf("evaluate store: %v", err)
	}
	if !v.PilotScaleUpOK {
		t.Fatalf("expected readiness from stored history, got %+v", v)
	}

	recs, err := s.ListWindow(CategoryStructural, asOf.Add(-400*24*time.Hour), asOf)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 13 {
		t.Fatalf("expected 13 structural records, got %d", len(recs))
	}
	if !recs[0].Timestamp.Before(recs[len(recs)-1].Timestamp) {
		t.Fatal("records must come back oldest first")
	}
}

func TestAppendRejectsEmptyCategory(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "pilot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if _, err := s.Append(IndicatorRecord{Pass: true}); err == nil {
		t.Fatal("expected rejection of empty category")
	}
}
