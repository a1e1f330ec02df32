package corridor

import "time"

// #region direction
// Direction states which way a raw measurement gets worse.
type Direction string

const (
	// HigherWorse: risk grows as the raw value rises toward the upper bound.
	HigherWorse Direction = "higher_worse"
	// LowerWorse: risk grows as the raw value falls toward the lower bound.
	LowerWorse Direction = "lower_worse"
)

// #endregion direction

// #region parameter
// Parameter is a registered corridor parameter. Immutable after registration.
type Parameter struct {
	Name       string
	Unit       string
	Direction  Direction
	LegalLimit float64
	GoldLimit  float64
	NormMin    float64 // normalization lower bound
	NormMax    float64 // normalization upper bound
	Weight     float64 // contribution weight into the residual
	Channel    int     // residual aggregation channel
}

// #endregion parameter

// #region record
// Record is one row of the external corridor specification, one per
// (parameter, channel). Every field is mandatory; a record with a missing or
// mistyped field is rejected at load time, never coerced.
type Record struct {
	ParameterName    string   `yaml:"parameter_name" validate:"required"`
	Unit             string   `yaml:"unit" validate:"required"`
	Direction        string   `yaml:"direction" validate:"required,oneof=higher_worse lower_worse"`
	LegalLimit       *float64 `yaml:"legal_limit" validate:"required"`
	GoldLimit        *float64 `yaml:"gold_limit" validate:"required"`
	NormalizationMin *float64 `yaml:"normalization_min" validate:"required"`
	NormalizationMax *float64 `yaml:"normalization_max" validate:"required"`
	Weight           *float64 `yaml:"weight" validate:"required,gte=0"`
	ChannelIndex     *int     `yaml:"channel_index" validate:"required,gte=0"`
}

// Spec is the parsed corridor specification file.
type Spec struct {
	Corridor []Record `yaml:"corridor" validate:"required,min=1,dive"`
}

// #endregion record

// #region risk-coordinate
// RiskCoordinate is a parameter's raw measurement normalized into [0,1].
// Created per observation tick and owned by the controller invocation that
// consumes it; summaries persist through the ledger, not the coordinate.
type RiskCoordinate struct {
	Parameter string
	Raw       float64
	R         float64 // normalized risk, 1.0 = boundary of acceptable risk
	Weight    float64
	Channel   int
	Timestamp time.Time
}

// #endregion risk-coordinate
