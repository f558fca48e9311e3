package universe

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"cosmos-server/internal/cosmos"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSummarizeProjectsUniverse(t *testing.T) {
	u := cosmos.NewUniverse("user-1", "My Cosmos", "seed", cosmos.DifficultyAdvanced,
		cosmos.DefaultConstants(), cosmos.DefaultInitialConditions())
	u.CurrentState.Age = 5e9
	u.CurrentState.StabilityIndex = 0.42
	u.CurrentState.CivilizationCount = 3
	u.Status = cosmos.StatusEnded
	u.EndCondition = "big-rip"

	s := summarize(u)

	if s.ID != u.ID || s.Name != "My Cosmos" {
		t.Fatalf("identity fields not projected: %+v", s)
	}
	if s.Difficulty != cosmos.DifficultyAdvanced {
		t.Fatalf("expected advanced difficulty, got %q", s.Difficulty)
	}
	if s.AgeGyr != 5 {
		t.Fatalf("expected age 5 Gyr, got %g", s.AgeGyr)
	}
	if s.StabilityIndex != 0.42 || s.CivilizationCount != 3 {
		t.Fatalf("state fields not projected: %+v", s)
	}
	if s.Status != cosmos.StatusEnded || s.EndCondition != "big-rip" {
		t.Fatalf("terminal fields not projected: %+v", s)
	}
}

func TestSimLockWithoutRedisIsNoop(t *testing.T) {
	lock := NewSimLock(nil, 30*time.Second, testLogger())

	release, err := lock.Acquire(context.Background(), "uni-1")
	if err != nil {
		t.Fatalf("lock without redis should be a no-op, got %v", err)
	}
	if release == nil {
		t.Fatal("release function must not be nil")
	}
	release()

	// Reacquiring must also succeed: there is no lease to contend on.
	release2, err := lock.Acquire(context.Background(), "uni-1")
	if err != nil {
		t.Fatalf("reacquire without redis should succeed, got %v", err)
	}
	release2()
}
