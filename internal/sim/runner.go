// Package sim sequences the per-tick simulation pipeline for one universe:
// physics expansion, structure and life updates, anomaly generation and
// decay, stability recomputation, and end-condition checks, in fixed order.
package sim

import (
	"context"
	"log/slog"

	"cosmos-server/internal/cosmos"
	apperrors "cosmos-server/internal/shared/errors"
	"cosmos-server/internal/sim/anomaly"
	"cosmos-server/internal/sim/endcond"
	"cosmos-server/internal/sim/physics"
	"cosmos-server/internal/sim/predict"
)

// MaxStepsPerRun caps a single simulation request.
const MaxStepsPerRun = 100

// Options configure one simulation run.
type Options struct {
	Tuning         cosmos.Tuning
	PlayerPosition cosmos.Vec3
}

// AnomalyStats summarizes the universe's anomaly population after a run.
type AnomalyStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Resolved int `json:"resolved"`
}

// EndStatus reports the universe's termination state after a run.
type EndStatus struct {
	Ended        bool    `json:"ended"`
	EndCondition string  `json:"endCondition,omitempty"`
	EndReason    string  `json:"endReason,omitempty"`
	FinalAge     float64 `json:"finalAge,omitempty"`
}

// Result is the orchestrator's report for one run.
type Result struct {
	StepsRequested   int                `json:"stepsRequested"`
	StepsRun         int                `json:"stepsRun"`
	Stats            physics.Statistics `json:"stats"`
	AnomalyStats     AnomalyStats       `json:"anomalyStats"`
	EndStatus        EndStatus          `json:"endStatus"`
	Warnings         []endcond.Warning  `json:"warnings"`
	Predictions      *predict.Report    `json:"predictions"`
	CreatedAnomalies []cosmos.Anomaly   `json:"createdAnomalies"`
}

// Run advances the universe by up to requestedSteps ticks. The universe is
// mutated in memory only; persistence is the caller's responsibility, and a
// context cancellation between ticks aborts the run without partial state
// being persisted. A tick itself is never interrupted.
func Run(ctx context.Context, universe *cosmos.Universe, requestedSteps int, opts Options, logger *slog.Logger) (*Result, error) {
	if universe.Ended() {
		return nil, apperrors.BusinessRule("universe has already ended")
	}
	if universe.Status == cosmos.StatusPaused {
		return nil, apperrors.BusinessRule("universe is paused")
	}

	steps := requestedSteps
	if steps < 1 {
		steps = 1
	}
	if steps > MaxStepsPerRun {
		steps = MaxStepsPerRun
	}

	tuning := opts.Tuning
	observableGalaxies := universe.Constants.ObservableGalaxies
	if tuning.ObservableGalaxiesMultiplier > 0 {
		observableGalaxies *= tuning.ObservableGalaxiesMultiplier
	}

	engine := physics.NewEngine(universe, physics.Options{
		TimeStepYears:            tuning.TimeStepYears,
		DifficultyModifier:       tuning.DifficultyModifier,
		Seed:                     universe.Seed,
		ObservableGalaxies:       observableGalaxies,
		CivilizationCullInterval: tuning.CivilizationCullInterval,
	}, logger)

	generator := anomaly.NewGenerator(universe, anomaly.Options{
		AnomalyProbabilityScale: tuning.AnomalyProbabilityScale,
		MaxAnomalyPerStep:       tuning.MaxAnomalyPerStep,
		Seed:                    universe.Seed,
		PlayerPosition:          opts.PlayerPosition,
		ObservableGalaxies:      observableGalaxies,
	}, logger)

	checker := endcond.NewChecker(universe, endcond.Options{
		DifficultyModifier: tuning.DifficultyModifier,
	}, logger)

	var created []cosmos.Anomaly
	stepsRun := 0

	for i := 0; i < steps; i++ {
		// Cancellation is honored between ticks, never within one.
		if err := ctx.Err(); err != nil {
			return nil, apperrors.WrapInternal("simulation cancelled", err)
		}

		engine.SimulateStep()
		created = append(created, generator.Generate()...)
		generator.Decay()
		engine.UpdateStability()
		stepsRun++

		if checker.Check() {
			break
		}
	}

	predictions := predict.Forecast(universe, predict.Options{
		TimeStepYears:      tuning.TimeStepYears,
		DifficultyModifier: tuning.DifficultyModifier,
		ObservableGalaxies: observableGalaxies,
	})

	resolved := 0
	for i := range universe.Anomalies {
		if universe.Anomalies[i].Resolved {
			resolved++
		}
	}

	result := &Result{
		StepsRequested: requestedSteps,
		StepsRun:       stepsRun,
		Stats:          engine.GetStatistics(),
		AnomalyStats: AnomalyStats{
			Total:    len(universe.Anomalies),
			Active:   len(universe.Anomalies) - resolved,
			Resolved: resolved,
		},
		EndStatus: EndStatus{
			Ended:        universe.Ended(),
			EndCondition: universe.EndCondition,
			EndReason:    universe.EndReason,
			FinalAge:     universe.FinalAge,
		},
		Warnings:         checker.Warnings(),
		Predictions:      predictions,
		CreatedAnomalies: created,
	}

	logger.Debug("Simulation run complete",
		"universe_id", universe.ID,
		"steps_run", stepsRun,
		"ended", result.EndStatus.Ended,
		"anomalies_created", len(created),
	)

	return result, nil
}
