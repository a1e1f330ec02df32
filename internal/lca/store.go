package lca

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	_ "modernc.org/sqlite"
)

// #region errors

// ErrMissingScenario: no scenario stored for the exact key. There is no
// silent default baseline.
var ErrMissingScenario = errors.New("lca: missing scenario")

// ErrValidation marks a scenario record rejected at load time.
var ErrValidation = errors.New("lca: validation error")

// #endregion errors

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS lca_scenarios (
	scenario_id       TEXT NOT NULL,
	region_id         TEXT NOT NULL,
	functional_unit   TEXT NOT NULL,
	mode              TEXT NOT NULL,
	gwp_kg_co2e       REAL NOT NULL,
	grid_gco2_kwh     REAL NOT NULL,
	landfill_ref_gwp  REAL NOT NULL,
	avoided_metal     REAL NOT NULL,
	energy_rec_eff    REAL NOT NULL,
	recycling_rate    REAL NOT NULL,
	secondary_json    TEXT,
	PRIMARY KEY (region_id, functional_unit, mode)
);
`
// #endregion schema

// #region store-struct
// Store keeps scenario pairs in SQLite.
type Store struct {
	db       *sql.DB
	validate *validator.Validate
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, validate: validator.New()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store-struct

// #region put
// Put validates and stores a scenario. Scenarios are immutable facts; an
// existing (region, functional unit, mode) key is rejected, not overwritten.
func (s *Store) Put(sc Scenario) error {
	if err := s.validate.Struct(sc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var secJSON any
	if len(sc.SecondaryImpacts) > 0 {
		b, err := json.Marshal(sc.SecondaryImpacts)
		if err != nil {
			return fmt.Errorf("marshal secondary impacts: %w", err)
		}
		secJSON = string(b)
	}

	_, err := s.db.Exec(
		`INSERT INTO lca_scenarios
		 (scenario_id, region_id, functional_unit, mode, gwp_kg_co2e,
		  grid_gco2_kwh, landfill_ref_gwp, avoided_metal, energy_rec_eff,
		  recycling_rate, secondary_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ScenarioID, sc.RegionID, sc.FunctionalUnit, sc.Mode, sc.GWPKgCO2e,
		sc.GridGCO2PerKWh, sc.LandfillRefGWPPerTon, sc.AvoidedVirginMetalCO2e,
		sc.EnergyRecoveryEff, sc.RecyclingRate, secJSON,
	)
	if err != nil {
		return fmt.Errorf("insert scenario %s/%s/%s: %w",
			sc.RegionID, sc.FunctionalUnit, sc.Mode, err)
	}
	return nil
}

// #endregion put

// #region get
// Get retrieves the scenario for an exact (region, functional unit, mode)
// key, or ErrMissingScenario.
func (s *Store) Get(region, functionalUnit, mode string) (Scenario, error) {
	var sc Scenario
	var secJSON sql.NullString

	err := s.db.QueryRow(
		`SELECT scenario_id, region_id, functional_unit, mode, gwp_kg_co2e,
		        grid_gco2_kwh, landfill_ref_gwp, avoided_metal, energy_rec_eff,
		        recycling_rate, secondary_json
		 FROM lca_scenarios WHERE region_id = ? AND functional_unit = ? AND mode = ?`,
		region, functionalUnit, mode,
	).Scan(&sc.ScenarioID, &sc.RegionID, &sc.FunctionalUnit, &sc.Mode,
		&sc.GWPKgCO2e, &sc.GridGCO2PerKWh, &sc.LandfillRefGWPPerTon,
		&sc.AvoidedVirginMetalCO2e, &sc.EnergyRecoveryEff, &sc.RecyclingRate,
		&secJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Scenario{}, fmt.Errorf("%w: %s/%s/%s", ErrMissingScenario, region, functionalUnit, mode)
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("get scenario: %w", err)
	}

	if secJSON.Valid {
		if err := json.Unmarshal([]byte(secJSON.String), &sc.SecondaryImpacts); err != nil {
			return Scenario{}, fmt.Errorf("unmarshal secondary impacts: %w", err)
		}
	}
	return sc, nil
}

// #endregion get
