package lca

import (
	"fmt"
	"sort"
)

// #region evaluator
// Evaluator compares the paired STATUS_QUO and CYBOCINDER scenarios for a
// region and functional unit.
type Evaluator struct {
	store *Store
	// NonWorseningCoImpacts additionally requires that no tracked secondary
	// impact in CYBOCINDER exceeds its STATUS_QUO counterpart.
	NonWorseningCoImpacts bool
}

// NewEvaluator creates an LCA gate evaluator with the co-impact policy on.
func NewEvaluator(store *Store) *Evaluator {
	return &Evaluator{store: store, NonWorseningCoImpacts: true}
}

// #endregion evaluator

// #region evaluate
// Evaluate yields the deployment verdict for one (region, functional unit).
// Both scenarios must exist for the exact key; the GWP comparison is strict
// inequality, so a tie fails: the design intent is strictly better, not
// merely not worse.
func (e *Evaluator) Evaluate(region, functionalUnit string) (Verdict, error) {
	base, err := e.store.Get(region, functionalUnit, ModeStatusQuo)
	if err != nil {
		return Verdict{}, err
	}
	cybo, err := e.store.Get(region, functionalUnit, ModeCybocinder)
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{
		GWPCybo:        cybo.GWPKgCO2e,
		GWPBase:        base.GWPKgCO2e,
		CoImpactDeltas: make(map[string]float64),
		DeploymentOK:   true,
	}

	if !(cybo.GWPKgCO2e < base.GWPKgCO2e) {
		v.DeploymentOK = false
		v.Reasons = append(v.Reasons, fmt.Sprintf(
			"GWP not strictly better: cybo=%g vs base=%g (%s/%s)",
			cybo.GWPKgCO2e, base.GWPKgCO2e, region, functionalUnit))
	}

	// Track deltas for every secondary impact named on either side. An impact
	// tracked only in CYBOCINDER is compared against an implicit zero
	// baseline, so introducing a new burden still counts as worsening.
	names := make(map[string]struct{})
	for n := range base.SecondaryImpacts {
		names[n] = struct{}{}
	}
	for n := range cybo.SecondaryImpacts {
		names[n] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	for _, n := range sorted {
		delta := cybo.SecondaryImpacts[n] - base.SecondaryImpacts[n]
		v.CoImpactDeltas[n] = delta
		if e.NonWorseningCoImpacts && delta > 0 {
			v.DeploymentOK = false
			v.Reasons = append(v.Reasons, fmt.Sprintf(
				"secondary impact %q worsens by %g", n, delta))
		}
	}

	if v.DeploymentOK {
		v.Reasons = append(v.Reasons, fmt.Sprintf(
			"GWP strictly better: cybo=%g < base=%g", cybo.GWPKgCO2e, base.GWPKgCO2e))
	}
	return v, nil
}

// #endregion evaluate
