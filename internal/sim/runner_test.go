package sim

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"cosmos-server/internal/cosmos"
	apperrors "cosmos-server/internal/shared/errors"
	"cosmos-server/internal/sim/endcond"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUniverse(seed string) *cosmos.Universe {
	return cosmos.NewUniverse("user-1", "test", seed, cosmos.DifficultyBeginner,
		cosmos.DefaultConstants(), cosmos.DefaultInitialConditions())
}

func beginnerRun() Options {
	return Options{Tuning: cosmos.DefaultTuning()[cosmos.DifficultyBeginner]}
}

func TestRunRejectsEndedUniverse(t *testing.T) {
	u := testUniverse("ended-seed")
	u.Status = cosmos.StatusEnded

	_, err := Run(context.Background(), u, 10, beginnerRun(), testLogger())
	if !apperrors.IsType(err, apperrors.ErrorTypeBusinessRule) {
		t.Fatalf("expected business rule error for ended universe, got %v", err)
	}
}

func TestRunRejectsPausedUniverse(t *testing.T) {
	u := testUniverse("paused-seed")
	u.Status = cosmos.StatusPaused

	_, err := Run(context.Background(), u, 10, beginnerRun(), testLogger())
	if !apperrors.IsType(err, apperrors.ErrorTypeBusinessRule) {
		t.Fatalf("expected business rule error for paused universe, got %v", err)
	}
}

func TestRunClampsRequestedSteps(t *testing.T) {
	u := testUniverse("clamp-seed")

	result, err := Run(context.Background(), u, 1000, beginnerRun(), testLogger())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsRequested != 1000 {
		t.Fatalf("requested steps should be echoed, got %d", result.StepsRequested)
	}
	if result.StepsRun != MaxStepsPerRun {
		t.Fatalf("expected run clamped to %d steps, got %d", MaxStepsPerRun, result.StepsRun)
	}
	if u.Metrics.TotalSteps != int64(MaxStepsPerRun) {
		t.Fatalf("universe should have advanced %d steps, got %d", MaxStepsPerRun, u.Metrics.TotalSteps)
	}
}

func TestRunDefaultsToOneStep(t *testing.T) {
	u := testUniverse("one-seed")

	result, err := Run(context.Background(), u, 0, beginnerRun(), testLogger())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsRun != 1 {
		t.Fatalf("zero requested steps should run one, got %d", result.StepsRun)
	}
}

func TestRunIsDeterministicPerSeed(t *testing.T) {
	u1 := testUniverse("replay-seed")
	u2 := testUniverse("replay-seed")

	if _, err := Run(context.Background(), u1, 50, beginnerRun(), testLogger()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := Run(context.Background(), u2, 50, beginnerRun(), testLogger()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	s1, _ := json.Marshal(u1.CurrentState)
	s2, _ := json.Marshal(u2.CurrentState)
	if string(s1) != string(s2) {
		t.Fatalf("identical seeds diverged:\n%s\n%s", s1, s2)
	}

	if len(u1.Anomalies) != len(u2.Anomalies) {
		t.Fatalf("anomaly counts diverged: %d vs %d", len(u1.Anomalies), len(u2.Anomalies))
	}
	for i := range u1.Anomalies {
		if u1.Anomalies[i].Type != u2.Anomalies[i].Type || u1.Anomalies[i].ID != u2.Anomalies[i].ID {
			t.Fatalf("anomaly %d diverged: %q vs %q", i, u1.Anomalies[i].Type, u2.Anomalies[i].Type)
		}
	}
}

func TestRunSurvivesDocumentRoundTrip(t *testing.T) {
	u1 := testUniverse("roundtrip-seed")
	if _, err := Run(context.Background(), u1, 25, beginnerRun(), testLogger()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Persisting and reloading the document must not change the trajectory.
	doc, err := json.Marshal(u1)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var u2 cosmos.Universe
	if err := json.Unmarshal(doc, &u2); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	u3 := testUniverse("roundtrip-seed")
	if _, err := Run(context.Background(), u3, 25, beginnerRun(), testLogger()); err != nil {
		t.Fatalf("replay run failed: %v", err)
	}

	s2, _ := json.Marshal(u2.CurrentState)
	s3, _ := json.Marshal(u3.CurrentState)
	if string(s2) != string(s3) {
		t.Fatal("document round trip changed the simulation state")
	}
}

func TestRunStopsWhenUniverseEnds(t *testing.T) {
	u := testUniverse("rip-seed")
	u.CurrentState.ScaleFactor = 2e9

	result, err := Run(context.Background(), u, 10, beginnerRun(), testLogger())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsRun != 1 {
		t.Fatalf("run should stop at the terminal tick, got %d steps", result.StepsRun)
	}
	if !result.EndStatus.Ended {
		t.Fatal("end status should report ended")
	}
	if result.EndStatus.EndCondition != endcond.ConditionBigRip {
		t.Fatalf("expected big rip, got %q", result.EndStatus.EndCondition)
	}
	if !u.Ended() {
		t.Fatal("universe should be ended")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	u := testUniverse("cancel-seed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, u, 10, beginnerRun(), testLogger())
	if err == nil {
		t.Fatal("cancelled context should abort the run")
	}
	if u.Metrics.TotalSteps != 0 {
		t.Fatalf("cancelled run should not advance the universe, got %d steps", u.Metrics.TotalSteps)
	}
}

func TestRunReportsAnomalySplit(t *testing.T) {
	u := testUniverse("split-seed")
	u.Anomalies = append(u.Anomalies,
		cosmos.Anomaly{ID: "anomaly-1", Type: "quantumFluctuation", Severity: 1, Resolved: true},
		cosmos.Anomaly{ID: "anomaly-2", Type: "quantumFluctuation", Severity: 1},
	)
	u.AnomalySeq = 2

	result, err := Run(context.Background(), u, 1, beginnerRun(), testLogger())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.AnomalyStats.Total != len(u.Anomalies) {
		t.Fatalf("anomaly total %d does not match universe %d", result.AnomalyStats.Total, len(u.Anomalies))
	}
	if result.AnomalyStats.Resolved < 1 {
		t.Fatal("resolved anomaly should be counted")
	}
	if result.AnomalyStats.Active+result.AnomalyStats.Resolved != result.AnomalyStats.Total {
		t.Fatal("anomaly split should sum to the total")
	}
	if result.Predictions == nil {
		t.Fatal("run should attach a forecast")
	}
}
