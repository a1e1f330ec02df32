package threshold

import (
	"testing"
	"time"

	"github.com/econetphx/cybocinder/go-gatekeeper/internal/corridor"
)

func testRegistry(t *testing.T) *corridor.Registry {
	t.Helper()
	reg := corridor.NewRegistry()
	params := []corridor.Parameter{
		{
			Name: "pm25_out", Unit: "ug/m3", Direction: corridor.HigherWorse,
			LegalLimit: 35, GoldLimit: 12, NormMin: 0, NormMax: 50, Weight: 1, Channel: 0,
		},
		{
			Name: "compost_oxygen", Unit: "percent", Direction: corridor.LowerWorse,
			LegalLimit: 10, GoldLimit: 14, NormMin: 5, NormMax: 21, Weight: 1, Channel: 1,
		},
	}
	for _, p := range params {
		if err := reg.Register(p); err != nil {
			t.Fatalf("register %s: %v", p.Name, err)
		}
	}
	return reg
}

func snapshot(t *testing.T, reg *corridor.Registry, raws map[string]float64) []corridor.RiskCoordinate {
	t.Helper()
	coords, err := corridor.NormalizeAll(reg, raws, time.Now())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return coords
}

func TestLegalAndGoldBothPass(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	coords := snapshot(t, reg, map[string]float64{"pm25_out": 10, "compost_oxygen": 15})

	res, err := e.Evaluate(coords, ModeBaseline)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.LegalOK || !res.GoldOK {
		t.Fatalf("expected clean pass, got %+v", res)
	}
	if res.GoldConsulted {
		t.Fatal("gold must not be consulted in baseline mode")
	}
}

func TestGoldFailureDoesNotBlockBaseline(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	// 20 ug/m3: within legal (35) but over gold (12).
	coords := snapshot(t, reg, map[string]float64{"pm25_out": 20})

	res, err := e.Evaluate(coords, ModeBaseline)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.LegalOK {
		t.Fatal("legal should pass")
	}
	if res.GoldOK {
		t.Fatal("gold should fail at 20 ug/m3")
	}
	if res.GoldConsulted {
		t.Fatal("baseline mode must not consult gold")
	}
}

func TestGoldConsultedInElevatedModes(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	coords := snapshot(t, reg, map[string]float64{"pm25_out": 20})

	for _, mode := range []Mode{ModeScaleUp, ModeBonus} {
		res, err := e.Evaluate(coords, mode)
		if err != nil {
			t.Fatalf("evaluate %s: %v", mode, err)
		}
		if !res.GoldConsulted {
			t.Fatalf("mode %s must consult gold", mode)
		}
		if res.GoldOK {
			t.Fatalf("mode %s: gold should fail", mode)
		}
		if len(res.GoldViolations) != 1 || res.GoldViolations[0] != "pm25_out" {
			t.Fatalf("mode %s: unexpected gold violations %v", mode, res.GoldViolations)
		}
	}
}

func TestLegalViolationNamed(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	coords := snapshot(t, reg, map[string]float64{"pm25_out": 40, "compost_oxygen": 15})

	res, err := e.Evaluate(coords, ModeBaseline)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.LegalOK {
		t.Fatal("legal should fail at 40 ug/m3")
	}
	if len(res.Violations) != 1 || res.Violations[0] != "pm25_out" {
		t.Fatalf("unexpected violations %v", res.Violations)
	}
}

func TestLowerWorseLimitDirection(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	// Oxygen at 8%: below the 10% legal floor.
	coords := snapshot(t, reg, map[string]float64{"compost_oxygen": 8})

	res, err := e.Evaluate(coords, ModeBaseline)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.LegalOK {
		t.Fatal("oxygen below legal floor should fail legal")
	}
}

func TestUnregisteredParameterFails(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	coords := []corridor.RiskCoordinate{{Parameter: "ghost", Raw: 1, R: 0.1, Weight: 1}}
	if _, err := e.Evaluate(coords, ModeBaseline); err == nil {
		t.Fatal("expected error for unregistered parameter")
	}
}

func TestEvaluateDoesNotMutateInput(t *testing.T) {
	reg := testRegistry(t)
	e := NewEvaluator(reg)
	coords := snapshot(t, reg, map[string]float64{"pm25_out": 40})
	before := coords[0]
	if _, err := e.Evaluate(coords, ModeScaleUp); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if coords[0] != before {
		t.Fatal("evaluator mutated its input snapshot")
	}
}
