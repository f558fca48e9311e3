package cosmos

import (
	"fmt"
	"testing"
)

func testUniverse() *Universe {
	return NewUniverse("user-1", "test", "seed", DifficultyBeginner, DefaultConstants(), DefaultInitialConditions())
}

func TestMilestoneTransitionsOnce(t *testing.T) {
	u := testUniverse()

	if !u.SetMilestone(MilestoneFirstGalaxy) {
		t.Fatal("first transition should report newly set")
	}
	if u.SetMilestone(MilestoneFirstGalaxy) {
		t.Fatal("second transition should be a no-op")
	}
	if !u.Milestones[MilestoneFirstGalaxy] {
		t.Fatal("milestone flag should remain set")
	}
}

func TestEventOverflowEvictsOldestBatch(t *testing.T) {
	u := testUniverse()

	for i := 0; i < MaxEvents; i++ {
		u.RecordEvent("test", fmt.Sprintf("event %d", i), nil)
	}
	if got := len(u.SignificantEvents); got != MaxEvents {
		t.Fatalf("expected %d events at cap, got %d", MaxEvents, got)
	}

	u.RecordEvent("test", "overflow", nil)

	want := MaxEvents - EventEvictBatch + 1
	if got := len(u.SignificantEvents); got != want {
		t.Fatalf("expected %d events after eviction, got %d", want, got)
	}
	if u.SignificantEvents[0].Description != fmt.Sprintf("event %d", EventEvictBatch) {
		t.Fatalf("oldest batch should have been dropped, first is %q", u.SignificantEvents[0].Description)
	}
	last := u.SignificantEvents[len(u.SignificantEvents)-1]
	if last.Description != "overflow" {
		t.Fatalf("newest event should be retained, got %q", last.Description)
	}
}

func TestStabilityHistoryIsBounded(t *testing.T) {
	u := testUniverse()

	for i := 0; i < StabilityHistorySize+50; i++ {
		u.PushStability(float64(i))
	}
	if got := len(u.StabilityHistory); got != StabilityHistorySize {
		t.Fatalf("expected history capped at %d, got %d", StabilityHistorySize, got)
	}
	if u.StabilityHistory[0] != 50 {
		t.Fatalf("expected oldest samples evicted, first is %v", u.StabilityHistory[0])
	}
}

func TestStabilityTrend(t *testing.T) {
	u := testUniverse()

	for i := 0; i < 10; i++ {
		u.PushStability(0.4)
	}
	for i := 0; i < 10; i++ {
		u.PushStability(0.6)
	}

	trend := u.StabilityTrend()
	if diff := trend - 0.2; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("expected trend 0.2, got %v", trend)
	}
}

func TestPhaseForAge(t *testing.T) {
	cases := []struct {
		ageGyr float64
		want   Phase
	}{
		{0.05, PhaseDarkAges},
		{0.5, PhaseReionization},
		{3, PhaseGalaxyFormation},
		{7, PhaseStellarPeak},
		{30, PhaseGradualDecline},
		{80, PhaseTwilightEra},
		{150, PhaseDegenerateEra},
	}

	for _, tc := range cases {
		if got := PhaseForAge(tc.ageGyr); got != tc.want {
			t.Errorf("PhaseForAge(%v) = %v, want %v", tc.ageGyr, got, tc.want)
		}
	}
}

func TestSequentialIDs(t *testing.T) {
	u := testUniverse()

	if id := u.NextAnomalyID(); id != "anomaly-1" {
		t.Fatalf("unexpected first anomaly id %q", id)
	}
	if id := u.NextAnomalyID(); id != "anomaly-2" {
		t.Fatalf("unexpected second anomaly id %q", id)
	}
	if id := u.NextCivilizationID(); id != "civ-1" {
		t.Fatalf("unexpected first civilization id %q", id)
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(""); err != nil || d != DifficultyBeginner {
		t.Fatalf("empty difficulty should default to Beginner, got %v, %v", d, err)
	}
	if _, err := ParseDifficulty("Impossible"); err == nil {
		t.Fatal("unknown difficulty should be rejected")
	}
}
