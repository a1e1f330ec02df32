package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
	"github.com/econetphx/cybocinder/go-gatekeeper/internal/residual"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a corridor
// specification, controller tolerances, a seed snapshot, and the recorded
// tick samples with their expected gate actions.
type Fixture struct {
	Description     string                  `json:"description"`
	Mode            string                  `json:"mode"` // BASELINE | SCALE_UP | BONUS
	Corridor        []FixtureParameter      `json:"corridor"`
	Config          FixtureConfig           `json:"config"`
	Seed            FixtureSample           `json:"seed"`
	Ticks           []FixtureSample         `json:"ticks"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureParameter mirrors one corridor record with JSON tags.
type FixtureParameter struct {
	ParameterName    string   `json:"parameter_name"`
	Unit             string   `json:"unit"`
	Direction        string   `json:"direction"`
	LegalLimit       *float64 `json:"legal_limit"`
	GoldLimit        *float64 `json:"gold_limit"`
	NormalizationMin *float64 `json:"normalization_min"`
	NormalizationMax *float64 `json:"normalization_max"`
	Weight           *float64 `json:"weight"`
	ChannelIndex     *int     `json:"channel_index"`
}

// FixtureConfig mirrors residual.Config with JSON tags. Zero values fall back
// to the documented defaults.
type FixtureConfig struct {
	Epsilon          float64 `json:"epsilon"`
	StalenessBoundMS int64   `json:"staleness_bound_ms"`
	TrendWindow      int     `json:"trend_window"`
}

// FixtureSample is one recorded measurement set, seed or tick.
type FixtureSample struct {
	Tick      uint64             `json:"tick,omitempty"`
	Layer     string             `json:"layer,omitempty"`
	Timestamp string             `json:"timestamp"` // RFC 3339
	Raws      map[string]float64 `json:"raws"`
}

// FixtureExpectedResult captures the expected action per tick.
type FixtureExpectedResult struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"` // admit | derate | stop
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToSpec converts the fixture corridor to a domain corridor spec.
func (f *Fixture) ToSpec() corridor.Spec {
	spec := corridor.Spec{Corridor: make([]corridor.Record, 0, len(f.Corridor))}
	for _, p := range f.Corridor {
		spec.Corridor = append(spec.Corridor, corridor.Record{
			ParameterName:    p.ParameterName,
			Unit:             p.Unit,
			Direction:        p.Direction,
			LegalLimit:       p.LegalLimit,
			GoldLimit:        p.GoldLimit,
			NormalizationMin: p.NormalizationMin,
			NormalizationMax: p.NormalizationMax,
			Weight:           p.Weight,
			ChannelIndex:     p.ChannelIndex,
		})
	}
	return spec
}

// ToResidualConfig converts the fixture config to controller tolerances.
func (fc *FixtureConfig) ToResidualConfig() residual.Config {
	cfg := residual.DefaultConfig()
	if fc.Epsilon > 0 {
		cfg.Epsilon = fc.Epsilon
	}
	if fc.StalenessBoundMS > 0 {
		cfg.StalenessBound = time.Duration(fc.StalenessBoundMS) * time.Millisecond
	}
	if fc.TrendWindow > 0 {
		cfg.TrendWindow = fc.TrendWindow
	}
	return cfg
}

// ToSample converts a FixtureSample to a domain Sample.
func (fs *FixtureSample) ToSample() (Sample, error) {
	ts, err := time.Parse(time.RFC3339, fs.Timestamp)
	if err != nil {
		return Sample{}, fmt.Errorf("parse timestamp %q: %w", fs.Timestamp, err)
	}
	return Sample{
		Tick:      fs.Tick,
		Layer:     fs.Layer,
		Timestamp: ts,
		Raws:      fs.Raws,
	}, nil
}

// #endregion fixture-loader
