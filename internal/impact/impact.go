// Package impact implements the canonical eco-impact mass operator for
// capture nodes: mass removed over an operating window, the hazard-weighted
// canonical impact, and the karma-byte award derived from it. Summaries feed
// the audit ledger as telemetry payloads.
package impact

import (
	"fmt"
	"math"
)

// #region units
// gasConstant is R in J/(mol K), used for ppb conversion at site temperature.
const gasConstant = 8.3145

// UnitToKgFactor converts a concentration unit to a kg/m3 factor. Particulate
// units need no molar mass; ppb gases do (kg/mol).
func UnitToKgFactor(unit string, temperatureK, molarMassKgPerMol float64) (float64, error) {
	switch unit {
	case "ugm3", "ug/m3":
		return 1e-9, nil
	case "mgm3", "mg/m3":
		return 1e-6, nil
	case "ppb":
		if temperatureK <= 0 || molarMassKgPerMol <= 0 {
			return 0, fmt.Errorf("impact: ppb conversion needs temperature and molar mass")
		}
		return (molarMassKgPerMol / (gasConstant * temperatureK)) * 1e-9, nil
	default:
		return 0, fmt.Errorf("impact: unknown concentration unit %q", unit)
	}
}

// #endregion units

// #region node
// NodeMeta describes one capture node's baseline and weighting.
type NodeMeta struct {
	NodeID         string
	Label          string
	Pollutant      string
	CinBaseline    float64 // inlet concentration
	Unit           string
	Cref           float64 // reference concentration for canonical impact
	FlowM3PerS     float64
	HorizonS       float64 // accumulation window in seconds
	EcoImpactScore float64 // normalized [0,1]
	HazardWeight   float64 // lambda for this pollutant
	KarmaPerUnit   float64 // karma bytes per canonical impact unit
}

// Result is the impact summary for one node over one operating window.
type Result struct {
	NodeID          string
	MassRemoved     float64 // concentration units x m3 (SI mass via UnitToKgFactor)
	CanonicalImpact float64 // dimensionless, medium-agnostic
	KarmaBytes      float64
}

// #endregion node

// #region evaluate
// MassRemoved computes M = (Cin - Cout) * Q * t, floored at zero.
func MassRemoved(cin, cout, flowM3PerS, horizonS float64) float64 {
	return math.Max(cin-cout, 0) * flowM3PerS * horizonS
}

// Evaluate computes the canonical impact K = lambda * dC/Cref * Q * t and the
// karma-byte award for one node given an observed outlet concentration.
func Evaluate(meta NodeMeta, cout float64) Result {
	cref := meta.Cref
	if cref <= 0 {
		cref = 1
	}
	deltaNorm := math.Max(meta.CinBaseline-cout, 0) / cref
	canonical := meta.HazardWeight * deltaNorm * meta.FlowM3PerS * meta.HorizonS
	eco := math.Min(math.Max(meta.EcoImpactScore, 0), 1)

	return Result{
		NodeID:          meta.NodeID,
		MassRemoved:     MassRemoved(meta.CinBaseline, cout, meta.FlowM3PerS, meta.HorizonS),
		CanonicalImpact: canonical,
		KarmaBytes:      canonical * eco * meta.KarmaPerUnit,
	}
}

// SystemTotal aggregates node impacts for a site-wide window.
func SystemTotal(nodes []NodeMeta, couts []float64) (Result, error) {
	if len(nodes) != len(couts) {
		return Result{}, fmt.Errorf("impact: %d nodes vs %d outlet readings", len(nodes), len(couts))
	}
	var total Result
	total.NodeID = "system"
	for i, meta := range nodes {
		r := Evaluate(meta, couts[i])
		total.MassRemoved += r.MassRemoved
		total.CanonicalImpact += r.CanonicalImpact
		total.KarmaBytes += r.KarmaBytes
	}
	return total, nil
}

// #endregion evaluate
