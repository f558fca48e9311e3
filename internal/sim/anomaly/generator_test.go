package anomaly

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"cosmos-server/internal/cosmos"
	apperrors "cosmos-server/internal/shared/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// matureUniverse satisfies every anomaly spawn condition at full galactic
// activity.
func matureUniverse(seed string) *cosmos.Universe {
	u := cosmos.NewUniverse("user-1", "test", seed, cosmos.DifficultyBeginner,
		cosmos.DefaultConstants(), cosmos.DefaultInitialConditions())

	state := &u.CurrentState
	state.Age = 6e9
	state.GalaxyCount = u.Constants.ObservableGalaxies
	state.StarCount = 1e10
	state.BlackHoleCount = 1e6
	state.StabilityIndex = 0.8
	return u
}

func forcedOptions(seed string) Options {
	// A huge probability scale makes every eligible definition fire, so the
	// per-step cap is the only limit.
	return Options{
		AnomalyProbabilityScale: 1e6,
		MaxAnomalyPerStep:       3,
		Seed:                    seed,
	}
}

func TestGenerateHonorsPerStepCap(t *testing.T) {
	u := matureUniverse("cap-seed")
	g := NewGenerator(u, forcedOptions("cap-seed"), testLogger())

	created := g.Generate()

	if len(created) != 3 {
		t.Fatalf("expected exactly 3 anomalies at the per-step cap, got %d", len(created))
	}
	if got := len(u.Anomalies); got != 3 {
		t.Fatalf("expected 3 anomalies appended, got %d", got)
	}
	if u.Metrics.TotalAnomalies != 3 {
		t.Fatalf("expected total anomaly metric 3, got %d", u.Metrics.TotalAnomalies)
	}
	for i, a := range created {
		if a.Severity < 1 || a.Severity > 3 {
			t.Fatalf("anomaly %d severity %g outside initial range", i, a.Severity)
		}
		if a.Radius != chunkSize*a.Severity {
			t.Fatalf("anomaly %d radius %g does not scale with severity", i, a.Radius)
		}
	}
}

func TestGenerateRecordsDetectionEvents(t *testing.T) {
	u := matureUniverse("event-seed")
	g := NewGenerator(u, forcedOptions("event-seed"), testLogger())

	created := g.Generate()

	detections := 0
	for _, ev := range u.SignificantEvents {
		if ev.Type == "anomaly_detected" {
			detections++
		}
	}
	if detections != len(created) {
		t.Fatalf("expected %d detection events, got %d", len(created), detections)
	}
}

func TestGenerateStopsAtAnomalyCap(t *testing.T) {
	u := matureUniverse("full-seed")
	for i := 0; i < cosmos.MaxAnomalies; i++ {
		u.Anomalies = append(u.Anomalies, cosmos.Anomaly{
			ID:       u.NextAnomalyID(),
			Type:     "quantumFluctuation",
			Severity: 1,
		})
	}

	g := NewGenerator(u, forcedOptions("full-seed"), testLogger())
	created := g.Generate()

	if created != nil {
		t.Fatalf("expected no anomalies at cap, got %d", len(created))
	}
	if got := len(u.Anomalies); got != cosmos.MaxAnomalies {
		t.Fatalf("anomaly count should stay at cap, got %d", got)
	}
}

func TestGenerateDeterministicPerSeed(t *testing.T) {
	u1 := matureUniverse("same-seed")
	u2 := matureUniverse("same-seed")

	c1 := NewGenerator(u1, forcedOptions("same-seed"), testLogger()).Generate()
	c2 := NewGenerator(u2, forcedOptions("same-seed"), testLogger()).Generate()

	if len(c1) != len(c2) {
		t.Fatalf("identical seeds produced %d vs %d anomalies", len(c1), len(c2))
	}
	for i := range c1 {
		if c1[i].Type != c2[i].Type || c1[i].Severity != c2[i].Severity || c1[i].ID != c2[i].ID {
			t.Fatalf("anomaly %d diverged: %+v vs %+v", i, c1[i], c2[i])
		}
	}
}

func TestApplyEffectsUnknownKeyIgnored(t *testing.T) {
	u := matureUniverse("effects-seed")
	g := NewGenerator(u, forcedOptions("effects-seed"), testLogger())

	before := u.CurrentState
	a := cosmos.Anomaly{
		Type: "custom",
		EffectsRaw: map[string]float64{
			"noSuchEffect": 1e9,
		},
	}
	g.applyEffects(&a)

	if u.CurrentState != before {
		t.Fatal("unknown effect keys must not mutate state")
	}
}

func TestApplyEffectsClampsStability(t *testing.T) {
	u := matureUniverse("clamp-seed")
	u.CurrentState.StabilityIndex = 0.01
	g := NewGenerator(u, forcedOptions("clamp-seed"), testLogger())

	a := cosmos.Anomaly{
		Type:       "custom",
		EffectsRaw: map[string]float64{"stability": -5},
	}
	g.applyEffects(&a)

	if got := u.CurrentState.StabilityIndex; got != 0 {
		t.Fatalf("stability should clamp at 0, got %g", got)
	}
}

func TestDecayShavesSeverity(t *testing.T) {
	u := matureUniverse("decay-seed")
	u.Anomalies = append(u.Anomalies, cosmos.Anomaly{
		ID:        u.NextAnomalyID(),
		Type:      "quantumFluctuation",
		Severity:  3,
		DecayRate: 1.0, // always decays
	})
	stabilityBefore := u.CurrentState.StabilityIndex

	g := NewGenerator(u, forcedOptions("decay-seed"), testLogger())
	g.Decay()

	if got := u.Anomalies[0].Severity; math.Abs(got-2.9) > 1e-12 {
		t.Fatalf("expected severity 2.9 after decay, got %g", got)
	}
	if delta := u.CurrentState.StabilityIndex - stabilityBefore; math.Abs(delta-0.001) > 1e-12 {
		t.Fatalf("decay should nudge stability up by 0.001, got delta %g", delta)
	}
}

func TestResolveAppliesRestorativeEffects(t *testing.T) {
	u := matureUniverse("resolve-seed")
	state := &u.CurrentState
	state.StabilityIndex = 0.5
	state.Entropy = 1e7
	state.EnergyBudget = 0.5

	u.Anomalies = append(u.Anomalies, cosmos.Anomaly{
		ID:       u.NextAnomalyID(),
		Type:     "quantumFluctuation",
		Severity: 2,
	})

	resolution, err := Resolve(u, "anomaly-1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if math.Abs(resolution.StabilityBoost-0.03) > 1e-12 {
		t.Fatalf("expected stability boost 0.03 for severity 2, got %g", resolution.StabilityBoost)
	}
	if got := state.StabilityIndex; math.Abs(got-0.53) > 1e-12 {
		t.Fatalf("expected stability 0.53, got %g", got)
	}
	if got := state.Entropy; got != 4e6 {
		t.Fatalf("expected entropy 4e6, got %g", got)
	}
	if got := state.EnergyBudget; math.Abs(got-0.504) > 1e-12 {
		t.Fatalf("expected energy budget 0.504, got %g", got)
	}
	if !u.Anomalies[0].Resolved || u.Anomalies[0].ResolvedAt == nil {
		t.Fatal("anomaly should be marked resolved with a timestamp")
	}
	if u.Metrics.AnomaliesResolved != 1 || u.Metrics.PlayerInterventions != 1 {
		t.Fatalf("resolution metrics not updated: %+v", u.Metrics)
	}
	if u.Metrics.AnomalyResolutionRate != 1.0 {
		t.Fatalf("expected resolution rate 1.0, got %g", u.Metrics.AnomalyResolutionRate)
	}
}

func TestResolveRejectsDoubleResolution(t *testing.T) {
	u := matureUniverse("double-seed")
	u.Anomalies = append(u.Anomalies, cosmos.Anomaly{
		ID:       u.NextAnomalyID(),
		Type:     "quantumFluctuation",
		Severity: 1,
	})

	if _, err := Resolve(u, "anomaly-1"); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}

	metricsBefore := u.Metrics
	_, err := Resolve(u, "anomaly-1")
	if !apperrors.IsType(err, apperrors.ErrorTypeBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
	if u.Metrics != metricsBefore {
		t.Fatal("rejected resolution must not change metrics")
	}
}

func TestResolveUnknownAnomaly(t *testing.T) {
	u := matureUniverse("missing-seed")

	_, err := Resolve(u, "anomaly-999")
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCleanupRemovesOldResolvedOnly(t *testing.T) {
	u := matureUniverse("cleanup-seed")

	old := time.Now().UTC().Add(-10 * time.Minute)
	recent := time.Now().UTC().Add(-1 * time.Minute)
	u.Anomalies = []cosmos.Anomaly{
		{ID: "anomaly-1", Resolved: true, ResolvedAt: &old},
		{ID: "anomaly-2", Resolved: true, ResolvedAt: &recent},
		{ID: "anomaly-3"},
	}

	removed := Cleanup(u, 5*time.Minute)

	if removed != 1 {
		t.Fatalf("expected 1 anomaly removed, got %d", removed)
	}
	if len(u.Anomalies) != 2 {
		t.Fatalf("expected 2 anomalies remaining, got %d", len(u.Anomalies))
	}
	for _, a := range u.Anomalies {
		if a.ID == "anomaly-1" {
			t.Fatal("old resolved anomaly should have been removed")
		}
	}
}

func TestAutoCleanupOnlyRunsAtCap(t *testing.T) {
	u := matureUniverse("auto-seed")
	old := time.Now().UTC().Add(-10 * time.Minute)
	u.Anomalies = []cosmos.Anomaly{
		{ID: "anomaly-1", Resolved: true, ResolvedAt: &old},
	}

	g := NewGenerator(u, forcedOptions("auto-seed"), testLogger())
	if removed := g.AutoCleanup(5 * time.Minute); removed != 0 {
		t.Fatalf("auto-cleanup below cap should remove nothing, removed %d", removed)
	}
	if len(u.Anomalies) != 1 {
		t.Fatal("anomaly should survive auto-cleanup below the cap")
	}
}

func TestDefinitionConditionsGateSpawning(t *testing.T) {
	// A newborn universe only satisfies the unconditional definition.
	u := cosmos.NewUniverse("user-1", "test", "gate-seed", cosmos.DifficultyBeginner,
		cosmos.DefaultConstants(), cosmos.DefaultInitialConditions())

	state := &u.CurrentState
	ageGyr := state.AgeGyr()

	eligible := []string{}
	for i := range Definitions {
		if Definitions[i].Condition(state, ageGyr) {
			eligible = append(eligible, Definitions[i].Type)
		}
	}

	if len(eligible) != 1 || eligible[0] != "quantumFluctuation" {
		t.Fatalf("newborn universe should only be eligible for quantum fluctuations, got %v", eligible)
	}
}
