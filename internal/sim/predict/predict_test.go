package predict

import (
	"encoding/json"
	"testing"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/sim/endcond"
)

func testUniverse() *cosmos.Universe {
	u := cosmos.NewUniverse("user-1", "test", "predict-seed", cosmos.DifficultyBeginner,
		cosmos.DefaultConstants(), cosmos.DefaultInitialConditions())

	state := &u.CurrentState
	state.Age = 6e9
	state.GalaxyCount = 1e11
	state.StarCount = 1e19
	state.BlackHoleCount = 1e6
	state.StabilityIndex = 0.7
	state.Metallicity = 0.2
	return u
}

func testOptions() Options {
	tuning := cosmos.DefaultTuning()[cosmos.DifficultyBeginner]
	return Options{
		TimeStepYears:      tuning.TimeStepYears,
		DifficultyModifier: tuning.DifficultyModifier,
		ObservableGalaxies: cosmos.DefaultConstants().ObservableGalaxies,
	}
}

func TestForecastDoesNotMutateUniverse(t *testing.T) {
	u := testUniverse()

	before, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	Forecast(u, testOptions())

	after, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("forecast must be side-effect-free")
	}
}

func TestForecastRiskBounds(t *testing.T) {
	report := Forecast(testUniverse(), testOptions())

	if report.OverallRisk < 0 || report.OverallRisk > 1 {
		t.Fatalf("overall risk out of range: %g", report.OverallRisk)
	}
	if report.Stability.Risk < 0 || report.Stability.Risk > 1 {
		t.Fatalf("stability risk out of range: %g", report.Stability.Risk)
	}
	if report.Anomalies.Probability < 0 || report.Anomalies.Probability > 1 {
		t.Fatalf("anomaly probability out of range: %g", report.Anomalies.Probability)
	}
	for _, r := range report.EndConditions {
		if r.Risk < 0 || r.Risk > 1 {
			t.Fatalf("end condition %q risk out of range: %g", r.Condition, r.Risk)
		}
	}
}

func TestForecastCoversAllEndConditions(t *testing.T) {
	report := Forecast(testUniverse(), testOptions())

	if len(report.EndConditions) != len(endcond.Conditions) {
		t.Fatalf("expected %d end condition risks, got %d", len(endcond.Conditions), len(report.EndConditions))
	}

	seen := map[string]bool{}
	for i, r := range report.EndConditions {
		seen[r.Condition] = true
		if i > 0 && report.EndConditions[i-1].Risk < r.Risk {
			t.Fatal("end condition risks should be sorted descending")
		}
	}
	for _, c := range endcond.Conditions {
		if !seen[c] {
			t.Fatalf("missing end condition %q in forecast", c)
		}
	}
}

func TestForecastLikelyTypesMatchSpawnConditions(t *testing.T) {
	report := Forecast(testUniverse(), testOptions())

	likely := map[string]bool{}
	for _, anomalyType := range report.Anomalies.LikelyTypes {
		likely[anomalyType] = true
	}

	// At 6 Gyr with this structure census every kind is eligible.
	for _, want := range []string{
		"blackHoleMerger", "darkEnergySurge", "supernovaChain", "quantumFluctuation",
		"galacticCollision", "cosmicVoid", "magneticReversal", "darkMatterClump",
	} {
		if !likely[want] {
			t.Fatalf("expected %q in likely types, got %v", want, report.Anomalies.LikelyTypes)
		}
	}

	// A structureless newborn universe is only eligible for the
	// unconditional kind.
	newborn := cosmos.NewUniverse("user-1", "test", "newborn-seed", cosmos.DifficultyBeginner,
		cosmos.DefaultConstants(), cosmos.DefaultInitialConditions())
	report = Forecast(newborn, testOptions())
	if len(report.Anomalies.LikelyTypes) != 1 || report.Anomalies.LikelyTypes[0] != "quantumFluctuation" {
		t.Fatalf("newborn universe should only risk quantum fluctuations, got %v", report.Anomalies.LikelyTypes)
	}
}

func TestForecastActionPriorityCriticalStability(t *testing.T) {
	u := testUniverse()
	u.CurrentState.StabilityIndex = 0.1

	report := Forecast(u, testOptions())

	found := false
	for _, action := range report.ActionPriority {
		if action.Action == "stabilize" && action.Priority == "critical" {
			found = true
		}
	}
	if !found {
		t.Fatalf("critically unstable universe should demand stabilization, got %+v", report.ActionPriority)
	}
}

func TestForecastLifeOutlook(t *testing.T) {
	u := testUniverse()
	u.CurrentState.LifeBearingPlanetsCount = 5000
	u.Civilizations = []cosmos.Civilization{}

	report := Forecast(u, testOptions())
	if report.Life.CivilizationOutlook != "emerging" {
		t.Fatalf("life-rich universe without civilizations should be emerging, got %q", report.Life.CivilizationOutlook)
	}

	u.Civilizations = append(u.Civilizations, cosmos.Civilization{ID: "civ-1", Stability: 0.9})
	report = Forecast(u, testOptions())
	if report.Life.CivilizationOutlook != "flourishing" {
		t.Fatalf("stable universe with civilizations should be flourishing, got %q", report.Life.CivilizationOutlook)
	}
}
