// Package region holds per-region environmental profiles and derives the
// default corridor specification for a site from its profile. Profiles are
// static configuration; live telemetry replaces the band midpoints at runtime.
package region

import "github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"

// #region profile
// Profile is the container for all region-specific operating bands.
type Profile struct {
	Code string

	// Compost environment.
	CompostTempMinC      float64
	CompostTempMaxC      float64
	CompostMoistureMin   float64
	CompostMoistureMax   float64
	CompostOxygenMinPct  float64
	CompostOxygenGoldPct float64

	// Canal water quality baselines.
	CanalPHMin    float64
	CanalPHMax    float64
	CanalPHGold   float64
	CanalTDSMin   float64
	CanalTDSMax   float64
	CanalTDSLegal float64
	CanalTDSGold  float64

	// Biodegradation targets.
	T90TargetDays    float64
	T90HardLimitDays float64

	// Toxicity corridor bands.
	RtoxSafe float64
	RtoxGold float64
	RtoxHard float64
}

// PhoenixAZ returns the phoenix_az profile.
func PhoenixAZ() Profile {
	return Profile{
		Code:                 "Phoenix-AZ-US",
		CompostTempMinC:      45.0,
		CompostTempMaxC:      60.0,
		CompostMoistureMin:   0.45,
		CompostMoistureMax:   0.65,
		CompostOxygenMinPct:  10.0,
		CompostOxygenGoldPct: 14.0,
		CanalPHMin:           7.2,
		CanalPHMax:           8.3,
		CanalPHGold:          7.5,
		CanalTDSMin:          500.0,
		CanalTDSMax:          1000.0,
		CanalTDSLegal:        900.0,
		CanalTDSGold:         700.0,
		T90TargetDays:        90.0,
		T90HardLimitDays:     180.0,
		RtoxSafe:             0.05,
		RtoxGold:             0.10,
		RtoxHard:             0.20,
	}
}

// #endregion profile

// #region corridor
// CorridorSpec derives the default corridor specification from a profile:
// toxicity and biodegradation carry the most weight, water quality less.
func (p Profile) CorridorSpec() corridor.Spec {
	return corridor.Spec{Corridor: []corridor.Record{
		{
			ParameterName: "r_tox", Unit: "dimensionless", Direction: string(corridor.HigherWorse),
			LegalLimit: f(p.RtoxGold), GoldLimit: f(p.RtoxSafe),
			NormalizationMin: f(0), NormalizationMax: f(p.RtoxHard),
			Weight: f(2.0), ChannelIndex: i(0),
		},
		{
			ParameterName: "t90_days", Unit: "days", Direction: string(corridor.HigherWorse),
			LegalLimit: f(p.T90HardLimitDays), GoldLimit: f(p.T90TargetDays),
			NormalizationMin: f(0), NormalizationMax: f(p.T90HardLimitDays),
			Weight: f(1.0), ChannelIndex: i(1),
		},
		{
			ParameterName: "compost_oxygen_pct", Unit: "percent", Direction: string(corridor.LowerWorse),
			LegalLimit: f(p.CompostOxygenMinPct), GoldLimit: f(p.CompostOxygenGoldPct),
			NormalizationMin: f(5.0), NormalizationMax: f(21.0),
			Weight: f(0.5), ChannelIndex: i(2),
		},
		{
			ParameterName: "canal_ph", Unit: "pH", Direction: string(corridor.LowerWorse),
			LegalLimit: f(p.CanalPHMin), GoldLimit: f(p.CanalPHGold),
			NormalizationMin: f(6.5), NormalizationMax: f(p.CanalPHMax),
			Weight: f(0.25), ChannelIndex: i(3),
		},
		{
			ParameterName: "canal_tds_mg_l", Unit: "mg/L", Direction: string(corridor.HigherWorse),
			LegalLimit: f(p.CanalTDSLegal), GoldLimit: f(p.CanalTDSGold),
			NormalizationMin: f(p.CanalTDSMin), NormalizationMax: f(p.CanalTDSMax),
			Weight: f(0.25), ChannelIndex: i(4),
		},
	}}
}

// BaselineRaws returns band-midpoint measurements for seeding a controller
// before live telemetry arrives.
func (p Profile) BaselineRaws() map[string]float64 {
	return map[string]float64{
		"r_tox":              p.RtoxSafe,
		"t90_days":           p.T90TargetDays,
		"compost_oxygen_pct": 0.5 * (p.CompostOxygenMinPct + 21.0),
		"canal_ph":           0.5 * (p.CanalPHMin + p.CanalPHMax),
		"canal_tds_mg_l":     0.5 * (p.CanalTDSMin + p.CanalTDSMax),
	}
}

// #endregion corridor

// #region helpers
func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

// #endregion helpers
