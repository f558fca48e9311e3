// Package anomaly creates, applies, decays, and resolves the discrete
// stochastic perturbations of a universe.
package anomaly

import (
	"log/slog"
	"math"
	"time"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/cosmos/rng"
	apperrors "cosmos-server/internal/shared/errors"
)

const (
	// chunkSize is the spatial quantum for anomaly placement.
	chunkSize = 1000.0

	// resolvedRetention is how long resolved anomalies survive auto-cleanup
	// at the generation cap.
	resolvedRetention = 5 * time.Minute
)

// Options configure an anomaly generator for one simulation run. The RNG
// stream derives from the universe seed with the "_anomaly" suffix so
// anomaly draws never perturb the physics stream.
type Options struct {
	AnomalyProbabilityScale float64
	MaxAnomalyPerStep       int
	Seed                    string
	PlayerPosition          cosmos.Vec3
	ObservableGalaxies      float64
}

// Generator owns anomaly lifecycle for a single universe.
type Generator struct {
	universe *cosmos.Universe
	opts     Options
	rng      *rng.Stream
	logger   *slog.Logger
}

func NewGenerator(universe *cosmos.Universe, opts Options, logger *slog.Logger) *Generator {
	if opts.MaxAnomalyPerStep <= 0 {
		opts.MaxAnomalyPerStep = 3
	}
	if opts.ObservableGalaxies <= 0 {
		opts.ObservableGalaxies = universe.Constants.ObservableGalaxies
	}

	return &Generator{
		universe: universe,
		opts:     opts,
		rng:      rng.New(opts.Seed).Derive("anomaly"),
		logger:   logger,
	}
}

// Generate runs one tick of anomaly generation and returns the anomalies
// spawned. Effects are applied immediately on each spawn.
func (g *Generator) Generate() []cosmos.Anomaly {
	g.AutoCleanup(resolvedRetention)

	if len(g.universe.Anomalies) >= cosmos.MaxAnomalies {
		return nil
	}

	state := &g.universe.CurrentState
	ageGyr := state.AgeGyr()

	activity := math.Min(1, state.GalaxyCount/g.opts.ObservableGalaxies)
	baseProb := g.opts.AnomalyProbabilityScale * activity

	var created []cosmos.Anomaly
	for i := range Definitions {
		if len(created) >= g.opts.MaxAnomalyPerStep {
			break
		}
		if len(g.universe.Anomalies) >= cosmos.MaxAnomalies {
			break
		}

		def := &Definitions[i]
		if !def.Condition(state, ageGyr) {
			continue
		}

		if g.rng.Float64() < def.BaseProb*baseProb*10000 {
			spawned := g.spawn(def)
			g.applyEffects(&spawned)
			g.universe.Anomalies = append(g.universe.Anomalies, spawned)
			g.universe.Metrics.TotalAnomalies++
			created = append(created, spawned)

			g.universe.RecordEvent("anomaly_detected", spawned.Description, spawned.EffectsRaw)
		}
	}

	if len(created) > 0 {
		g.logger.Debug("Anomalies generated",
			"universe_id", g.universe.ID,
			"count", len(created),
			"total", len(g.universe.Anomalies),
		)
	}

	return created
}

// spawn builds a new anomaly near the player position. Locations are
// sampled on a ring of 1-4 chunks around the player's chunk.
func (g *Generator) spawn(def *Definition) cosmos.Anomaly {
	severity := 1 + math.Floor(g.rng.Float64()*3)

	theta := g.rng.Angle()
	distance := g.rng.Range(1, 4)

	chunkX := math.Floor(g.opts.PlayerPosition.X / chunkSize)
	chunkY := math.Floor(g.opts.PlayerPosition.Y / chunkSize)

	location := cosmos.Vec3{
		X: (chunkX + math.Cos(theta)*distance) * chunkSize,
		Y: (chunkY + math.Sin(theta)*distance) * chunkSize,
		Z: g.opts.PlayerPosition.Z + (g.rng.Float64()*2-1)*5e3,
	}

	return cosmos.Anomaly{
		ID:          g.universe.NextAnomalyID(),
		Type:        def.Type,
		Category:    def.Category,
		Severity:    severity,
		Timestamp:   time.Now().UTC(),
		EffectsRaw:  def.Effects(severity),
		Location:    location,
		Radius:      chunkSize * severity,
		Description: def.Description,
		DecayRate:   0.001 * g.rng.Float64(),
	}
}

// applyEffects applies an anomaly's declarative effect map to the universe
// state, once, at generation time. Unknown effect keys are logged and
// ignored; they never fail the tick.
func (g *Generator) applyEffects(a *cosmos.Anomaly) {
	state := &g.universe.CurrentState

	for key, value := range a.EffectsRaw {
		switch key {
		case "stability":
			state.StabilityIndex = cosmos.Clamp01(state.StabilityIndex + value)
		case "entropy":
			state.Entropy = cosmos.Clamp(state.Entropy+value, 0, 1e16)
		case "expansionBoost":
			state.ExpansionRate *= 1 + value
		case "scaleFactorBump":
			state.ScaleFactor = cosmos.Clamp(state.ScaleFactor*(1+value), 1e-10, 1e10)
		case "metallicity":
			state.Metallicity = cosmos.Clamp01(state.Metallicity + value)
		case "starCount":
			state.StarCount = math.Max(0, state.StarCount+value)
		case "galaxyCount":
			state.GalaxyCount = math.Max(0, state.GalaxyCount+value)
		case "blackHoleCount":
			state.BlackHoleCount = math.Max(0, state.BlackHoleCount+value)
		case "habitable":
			state.HabitableSystemsCount = math.Max(0, state.HabitableSystemsCount+value)
		default:
			g.logger.Warn("Unknown anomaly effect ignored",
				"universe_id", g.universe.ID,
				"anomaly_type", a.Type,
				"effect", key,
			)
		}
	}
}

// Decay fractionally reduces anomaly severity. Each unresolved anomaly with
// a positive decay rate rolls once per tick; success shaves 0.1 severity
// and nudges stability back up.
func (g *Generator) Decay() {
	state := &g.universe.CurrentState

	for i := range g.universe.Anomalies {
		a := &g.universe.Anomalies[i]
		if a.Resolved || a.DecayRate <= 0 {
			continue
		}
		if g.rng.Float64() < a.DecayRate && a.Severity > 1 {
			a.Severity -= 0.1
			state.StabilityIndex = cosmos.Clamp01(state.StabilityIndex + 0.001)
		}
	}
}

// Resolution is the outcome of an operator resolving an anomaly.
type Resolution struct {
	Anomaly        cosmos.Anomaly `json:"anomaly"`
	StabilityBoost float64        `json:"stabilityBoost"`
	EntropyReduced float64        `json:"entropyReduced"`
	EnergyRestored float64        `json:"energyRestored"`
}

// Resolve marks an anomaly resolved and applies the restorative effects.
// Resolving an unknown id fails with not-found; resolving an already
// resolved anomaly is rejected as a business-rule violation with no
// metrics change.
func Resolve(universe *cosmos.Universe, anomalyID string) (*Resolution, error) {
	var target *cosmos.Anomaly
	for i := range universe.Anomalies {
		if universe.Anomalies[i].ID == anomalyID {
			target = &universe.Anomalies[i]
			break
		}
	}
	if target == nil {
		return nil, apperrors.NotFoundf("anomaly %s not found", anomalyID)
	}
	if target.Resolved {
		return nil, apperrors.BusinessRulef("anomaly %s is already resolved", anomalyID)
	}

	now := time.Now().UTC()
	target.Resolved = true
	target.ResolvedAt = &now

	state := &universe.CurrentState
	stabilityBoost := 0.015 * target.Severity
	entropyReduction := 3e6 * target.Severity
	energyRestored := 0.002 * target.Severity

	state.StabilityIndex = cosmos.Clamp01(state.StabilityIndex + stabilityBoost)
	state.Entropy = cosmos.Clamp(state.Entropy-entropyReduction, 0, 1e16)
	state.EnergyBudget = cosmos.Clamp01(state.EnergyBudget + energyRestored)

	metrics := &universe.Metrics
	metrics.PlayerInterventions++
	metrics.AnomaliesResolved++
	if total := int64(len(universe.Anomalies)); total > 0 {
		resolved := int64(0)
		for i := range universe.Anomalies {
			if universe.Anomalies[i].Resolved {
				resolved++
			}
		}
		metrics.AnomalyResolutionRate = float64(resolved) / float64(total)
	}

	universe.RecordEvent("anomaly_resolved", "Anomaly resolved: "+target.Description,
		map[string]float64{
			"stabilityBoost":   stabilityBoost,
			"entropyReduction": entropyReduction,
		})
	universe.Touch()

	return &Resolution{
		Anomaly:        *target,
		StabilityBoost: stabilityBoost,
		EntropyReduced: entropyReduction,
		EnergyRestored: energyRestored,
	}, nil
}

// AutoCleanup removes resolved anomalies whose resolution is older than the
// retention window, but only once the anomaly cap has been reached. It
// returns the number removed.
func (g *Generator) AutoCleanup(retention time.Duration) int {
	if len(g.universe.Anomalies) < cosmos.MaxAnomalies {
		return 0
	}
	return Cleanup(g.universe, retention)
}

// Cleanup unconditionally removes resolved anomalies older than the
// retention window and returns the number removed.
func Cleanup(universe *cosmos.Universe, retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)

	kept := universe.Anomalies[:0]
	removed := 0
	for _, a := range universe.Anomalies {
		if a.Resolved && a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	universe.Anomalies = kept

	if removed > 0 {
		universe.Touch()
	}
	return removed
}
