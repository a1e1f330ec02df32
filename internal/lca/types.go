package lca

// #region modes
// Scenario modes. Exactly these two labels pair per (region, functional unit).
const (
	ModeStatusQuo  = "STATUS_QUO"
	ModeCybocinder = "CYBOCINDER"
)

// Functional units used as the basis of comparison.
const (
	UnitMSWTon     = "MSW_TON"
	UnitEnergyMWh  = "ENERGY_MWH"
	UnitResourceKg = "RESOURCE_KG"
)

// #endregion modes

// #region scenario
// Scenario is one immutable life-cycle impact fact loaded from external data,
// one per (scenario_id, region_id, functional_unit).
type Scenario struct {
	ScenarioID     string `validate:"required"`
	RegionID       string `validate:"required"`
	FunctionalUnit string `validate:"required,oneof=MSW_TON ENERGY_MWH RESOURCE_KG"`
	Mode           string `validate:"required,oneof=STATUS_QUO CYBOCINDER"`

	// Primary comparative metric.
	GWPKgCO2e float64 `validate:"gte=0"`

	// Avoided-burden parameters.
	GridGCO2PerKWh         float64
	LandfillRefGWPPerTon   float64
	AvoidedVirginMetalCO2e float64
	EnergyRecoveryEff      float64 `validate:"gte=0,lte=1"`
	RecyclingRate          float64 `validate:"gte=0,lte=1"`

	// Tracked secondary impacts, name -> value (lower is better).
	SecondaryImpacts map[string]float64
}

// #endregion scenario

// #region verdict
// Verdict is the deployment comparison for one (region, functional unit).
type Verdict struct {
	DeploymentOK   bool
	GWPCybo        float64
	GWPBase        float64
	CoImpactDeltas map[string]float64 // cybo - base per tracked secondary impact
	Reasons        []string
}

// #endregion verdict
