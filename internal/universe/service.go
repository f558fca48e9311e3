package universe

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"cosmos-server/internal/cosmos"
	apperrors "cosmos-server/internal/shared/errors"
	"cosmos-server/internal/sim"
	"cosmos-server/internal/sim/anomaly"
	"cosmos-server/internal/sim/endcond"
	"cosmos-server/internal/sim/physics"
	"cosmos-server/internal/sim/predict"
)

const maxNameLength = 120

// Service owns universe lifecycle and coordinates simulation runs with
// persistence. Each run holds logical ownership of its universe from load
// through persist; across universes runs proceed in parallel.
type Service struct {
	repo       *Repository
	locks      *SimLock
	tuning     map[cosmos.Difficulty]cosmos.Tuning
	maxSteps   int
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewService(repo *Repository, locks *SimLock, tuning map[cosmos.Difficulty]cosmos.Tuning, maxSteps int, runTimeout time.Duration, logger *slog.Logger) *Service {
	if tuning == nil {
		tuning = cosmos.DefaultTuning()
	}
	if maxSteps < 1 || maxSteps > sim.MaxStepsPerRun {
		maxSteps = sim.MaxStepsPerRun
	}
	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}
	return &Service{
		repo:       repo,
		locks:      locks,
		tuning:     tuning,
		maxSteps:   maxSteps,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Create builds and persists a new universe for the owner. The seed is
// immutable afterward; omitted fields receive defaults.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (*cosmos.Universe, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Unnamed Universe"
	}
	if len(name) > maxNameLength {
		return nil, apperrors.Validationf("name must be at most %d characters", maxNameLength)
	}

	difficulty, err := cosmos.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, apperrors.WrapValidation("invalid difficulty", err)
	}

	seed := req.Seed
	if seed == "" {
		seed = randomSeed()
	}

	constants := cosmos.DefaultConstants()
	if req.Constants != nil {
		constants = *req.Constants
		if constants.ObservableGalaxies <= 0 || constants.AverageStarsPerGalaxy <= 0 {
			return nil, apperrors.Validation("observableGalaxies and averageStarsPerGalaxy must be positive")
		}
	}

	initial := cosmos.DefaultInitialConditions()
	if req.InitialConditions != nil {
		initial = *req.InitialConditions
		if initial.InitialScaleFactor <= 0 {
			return nil, apperrors.Validation("initialScaleFactor must be positive")
		}
	}

	universe := cosmos.NewUniverse(ownerID, name, seed, difficulty, constants, initial)
	universe.RecordEvent("universe_created", "A new universe springs into being", nil)

	if err := s.repo.Create(ctx, universe); err != nil {
		return nil, err
	}

	s.logger.Info("Universe created",
		"universe_id", universe.ID,
		"owner_id", ownerID,
		"difficulty", difficulty,
	)

	return universe, nil
}

// List returns summary projections of the owner's universes.
func (s *Service) List(ctx context.Context, ownerID string) ([]Summary, error) {
	universes, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(universes))
	for _, u := range universes {
		summaries = append(summaries, summarize(u))
	}
	return summaries, nil
}

// Get loads the full universe for its owner.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*cosmos.Universe, error) {
	universe, _, err := s.repo.GetOwned(ctx, id, ownerID)
	return universe, err
}

// Delete removes the owner's universe.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("Universe deleted", "universe_id", id, "owner_id", ownerID)
	return nil
}

// Simulate runs the step pipeline and persists the result atomically. The
// per-universe lease serializes runs; the version check catches whatever
// slips past it, and one internal retry re-runs the whole cycle on a
// conflict before surfacing the error.
func (s *Service) Simulate(ctx context.Context, ownerID, id string, steps int) (*sim.Result, *cosmos.Universe, error) {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	if steps > s.maxSteps {
		steps = s.maxSteps
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		universe, version, err := s.repo.GetOwned(ctx, id, ownerID)
		if err != nil {
			return nil, nil, err
		}

		runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
		result, err := sim.Run(runCtx, universe, steps, sim.Options{
			Tuning: s.tuningFor(universe.Difficulty),
		}, s.logger)
		cancel()
		if err != nil {
			// A cancelled or rejected run persists nothing.
			return nil, nil, err
		}

		if err := s.repo.Update(ctx, universe, version); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				lastErr = err
				continue
			}
			return nil, nil, err
		}

		return result, universe, nil
	}

	return nil, nil, apperrors.WrapPersistence("simulation write conflict persisted after retry", lastErr)
}

// ResolveAnomaly marks an anomaly resolved and persists the restorative
// effects, retrying once on a write conflict.
func (s *Service) ResolveAnomaly(ctx context.Context, ownerID, id, anomalyID string) (*anomaly.Resolution, error) {
	if strings.TrimSpace(anomalyID) == "" {
		return nil, apperrors.Validation("anomalyId is required")
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		universe, version, err := s.repo.GetOwned(ctx, id, ownerID)
		if err != nil {
			return nil, err
		}

		resolution, err := anomaly.Resolve(universe, anomalyID)
		if err != nil {
			return nil, err
		}

		if err := s.repo.Update(ctx, universe, version); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		s.logger.Info("Anomaly resolved",
			"universe_id", id,
			"anomaly_id", anomalyID,
			"stability_boost", resolution.StabilityBoost,
		)
		return resolution, nil
	}

	return nil, apperrors.WrapPersistence("anomaly resolution write conflict persisted after retry", lastErr)
}

// Stats returns the statistics snapshot for the owner's universe.
func (s *Service) Stats(ctx context.Context, ownerID, id string) (*physics.Statistics, error) {
	universe, _, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	tuning := s.tuningFor(universe.Difficulty)
	engine := physics.NewEngine(universe, physics.Options{
		TimeStepYears:      tuning.TimeStepYears,
		DifficultyModifier: tuning.DifficultyModifier,
		Seed:               universe.Seed,
		ObservableGalaxies: universe.Constants.ObservableGalaxies * tuning.ObservableGalaxiesMultiplier,
	}, s.logger)

	stats := engine.GetStatistics()
	return &stats, nil
}

// Anomalies returns the active/resolved split for the owner's universe.
func (s *Service) Anomalies(ctx context.Context, ownerID, id string) (active, resolved []cosmos.Anomaly, err error) {
	universe, _, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	active = []cosmos.Anomaly{}
	resolved = []cosmos.Anomaly{}
	for _, a := range universe.Anomalies {
		if a.Resolved {
			resolved = append(resolved, a)
		} else {
			active = append(active, a)
		}
	}
	return active, resolved, nil
}

// Predictions returns a fresh heuristic forecast for the owner's universe.
func (s *Service) Predictions(ctx context.Context, ownerID, id string) (*predict.Report, error) {
	universe, _, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	tuning := s.tuningFor(universe.Difficulty)
	return predict.Forecast(universe, predict.Options{
		TimeStepYears:      tuning.TimeStepYears,
		DifficultyModifier: tuning.DifficultyModifier,
		ObservableGalaxies: universe.Constants.ObservableGalaxies * tuning.ObservableGalaxiesMultiplier,
	}), nil
}

// EndConditions reports the universe's termination status and current
// threshold warnings.
func (s *Service) EndConditions(ctx context.Context, ownerID, id string) (*sim.EndStatus, []endcond.Warning, error) {
	universe, _, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	tuning := s.tuningFor(universe.Difficulty)
	checker := endcond.NewChecker(universe, endcond.Options{
		DifficultyModifier: tuning.DifficultyModifier,
	}, s.logger)

	status := &sim.EndStatus{
		Ended:        universe.Ended(),
		EndCondition: universe.EndCondition,
		EndReason:    universe.EndReason,
		FinalAge:     universe.FinalAge,
	}
	return status, checker.Warnings(), nil
}

// CleanupAnomalies removes resolved anomalies older than the retention
// window and persists the trimmed document.
func (s *Service) CleanupAnomalies(ctx context.Context, ownerID, id string, keepRecentMinutes int) (removed, remaining int, err error) {
	if keepRecentMinutes < 0 {
		return 0, 0, apperrors.Validation("keepRecentMinutes must not be negative")
	}

	universe, version, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return 0, 0, err
	}

	removed = anomaly.Cleanup(universe, time.Duration(keepRecentMinutes)*time.Minute)
	remaining = len(universe.Anomalies)

	if removed > 0 {
		if err := s.repo.Update(ctx, universe, version); err != nil {
			return 0, 0, err
		}
	}

	return removed, remaining, nil
}

func (s *Service) tuningFor(difficulty cosmos.Difficulty) cosmos.Tuning {
	if tuning, ok := s.tuning[difficulty]; ok {
		return tuning
	}
	return cosmos.DefaultTuning()[cosmos.DifficultyBeginner]
}

func randomSeed() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
