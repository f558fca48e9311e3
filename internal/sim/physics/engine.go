// Package physics advances the continuous state of a universe: expansion,
// structure formation, life evolution, and the composite stability index.
package physics

import (
	"log/slog"
	"math"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/cosmos/rng"
	"cosmos-server/internal/sim/civ"
)

// Unit conversions for the Friedmann term.
const (
	kmPerMpc       = 3.08567758128e19
	secondsPerYear = 3.15576e7

	radiationDensity = 0.0001
)

// Options configure a physics engine for one simulation run.
type Options struct {
	TimeStepYears      float64
	DifficultyModifier float64
	Seed               string
	// ObservableGalaxies already has the difficulty multiplier applied.
	ObservableGalaxies       float64
	CivilizationCullInterval int64
}

// Engine advances a single universe. It owns the physics RNG stream and the
// embedded civilization manager; it holds no global state.
type Engine struct {
	universe *cosmos.Universe
	opts     Options
	rng      *rng.Stream
	civs     *civ.Manager
	logger   *slog.Logger
}

func NewEngine(universe *cosmos.Universe, opts Options, logger *slog.Logger) *Engine {
	if opts.TimeStepYears <= 0 {
		opts.TimeStepYears = 1e7
	}
	if opts.DifficultyModifier <= 0 {
		opts.DifficultyModifier = 1.0
	}
	if opts.ObservableGalaxies <= 0 {
		opts.ObservableGalaxies = universe.Constants.ObservableGalaxies
	}

	stream := rng.New(opts.Seed)

	return &Engine{
		universe: universe,
		opts:     opts,
		rng:      stream,
		civs:     civ.NewManager(universe, stream, opts.CivilizationCullInterval, logger),
		logger:   logger,
	}
}

// SimulateStep advances the universe one tick: expansion, structure
// formation, then life and civilization evolution. Stability is recomputed
// separately (after anomaly processing) via UpdateStability.
func (e *Engine) SimulateStep() {
	if e.universe.Ended() {
		return
	}

	dt := e.opts.TimeStepYears

	e.updateExpansion(dt)
	e.updateStructures(dt)
	e.updateLife(dt)

	e.universe.Metrics.TotalSteps++
	e.universe.Touch()
}

// SimulateSteps advances the universe n ticks, stopping early if it ends.
func (e *Engine) SimulateSteps(n int) {
	for i := 0; i < n && !e.universe.Ended(); i++ {
		e.SimulateStep()
		e.UpdateStability()
	}
}

// updateExpansion advances cosmic time and the Friedmann expansion terms.
func (e *Engine) updateExpansion(dt float64) {
	state := &e.universe.CurrentState
	constants := e.universe.Constants

	state.Age += dt

	// Hubble constant converted from km/s/Mpc to inverse years.
	h0 := constants.HubbleConstant / kmPerMpc * secondsPerYear

	omegaM := constants.DarkMatterDensity + constants.MatterDensity
	omegaL := constants.DarkEnergyDensity
	a := state.ScaleFactor

	hEff := h0 * math.Sqrt(math.Max(0, omegaM/(a*a*a)+radiationDensity/(a*a*a*a)+omegaL))

	growth := cosmos.Clamp(hEff*dt, -0.1, 0.1)
	state.ScaleFactor = cosmos.Clamp(state.ScaleFactor*math.Exp(growth), 1e-10, 1e10)

	// Back to km/s/Mpc for display.
	state.ExpansionRate = hEff * kmPerMpc / secondsPerYear

	t0 := e.universe.InitialConditions.InitialTemperature
	state.Temperature = cosmos.Clamp(t0/state.ScaleFactor, 0.01, 100*t0)

	a = state.ScaleFactor
	state.Entropy = cosmos.Clamp(state.Entropy+math.Log(math.Max(1, a*a*a))*1e5*(dt/1e8), 0, 1e16)

	state.EnergyBudget = cosmos.Clamp01(state.EnergyBudget - 5e-13*dt)

	state.CosmicPhase = cosmos.PhaseForAge(state.AgeGyr())
}

// updateStructures grows galaxies, stars, and black holes, and advances
// stellar chemical evolution.
func (e *Engine) updateStructures(dt float64) {
	state := &e.universe.CurrentState
	constants := e.universe.Constants
	ageGyr := state.AgeGyr()
	carryingCapacity := e.opts.ObservableGalaxies

	// Galaxies: logistic growth with an early-universe bootstrap window.
	growthRate := (0.15 / 1e9) * (1 + 2*math.Exp(-sq((ageGyr-5)/3)))

	if ageGyr > 0.1 && ageGyr < 2.5 && state.GalaxyCount < 1000 {
		state.GalaxyCount += 2000 * math.Exp(-sq((ageGyr-0.5)/0.7)) * (dt / 1e7)
	} else if state.GalaxyCount > 0 {
		state.GalaxyCount += growthRate * state.GalaxyCount * (1 - state.GalaxyCount/carryingCapacity) * dt
	}

	if ageGyr > 1.0 && state.GalaxyCount < 100 {
		state.GalaxyCount += 100
	}

	state.GalaxyCount = cosmos.Clamp(state.GalaxyCount, 0, 1.5*carryingCapacity)

	if state.GalaxyCount >= 1 && e.universe.SetMilestone(cosmos.MilestoneFirstGalaxy) {
		e.universe.RecordEvent("milestone", "The first galaxies have coalesced", nil)
	}

	// Stars converge toward the per-galaxy average, boosted by metallicity
	// and damped in old universes.
	starsTarget := state.GalaxyCount * constants.AverageStarsPerGalaxy
	state.StarCount += (starsTarget - state.StarCount) * 0.003 *
		(1 + 0.5*state.Metallicity) * math.Exp(-ageGyr/10) * (dt / 1e7)

	if ageGyr > 0.5 && state.GalaxyCount > 10 && state.StarCount < 1e6 {
		state.StarCount += 1e6
	}
	if state.StarCount < 0 {
		state.StarCount = 0
	}

	if state.StarCount >= 1 && e.universe.SetMilestone(cosmos.MilestoneFirstStar) {
		e.universe.RecordEvent("milestone", "The first stars have ignited", nil)
	}

	// Stellar evolution: deaths drive generations and metal enrichment.
	deathRate := state.StarCount * 1e-11 * dt
	state.StellarGenerations = math.Min(10,
		state.StellarGenerations+deathRate/(constants.AverageStarsPerGalaxy*10))
	state.Metallicity = cosmos.Clamp01(state.Metallicity + deathRate*1e-14)

	if state.Metallicity > 0.1 && e.universe.SetMilestone(cosmos.MilestoneStellarPopulationI) {
		e.universe.RecordEvent("milestone", "Metal-rich Population I stars now dominate", nil)
	}

	state.BlackHoleCount += state.StarCount * 1e-4 * 0.1 * (dt / 1e9)
}

// updateLife evolves habitability, life emergence, and civilizations.
// Requires a mature enough, metal-enriched universe.
func (e *Engine) updateLife(dt float64) {
	state := &e.universe.CurrentState
	ageGyr := state.AgeGyr()

	if ageGyr < 1 || state.Metallicity < 0.01 {
		return
	}

	metallicityFactor := cosmos.Clamp01(state.Metallicity / 0.3)
	maturity := math.Min(1, (ageGyr-1)/3)
	state.HabitableSystemsCount = state.StarCount * (0.001 + metallicityFactor*maturity*0.015)

	if ageGyr > 3 && state.HabitableSystemsCount > 100 {
		tempSuitability := math.Exp(-sq((state.Temperature - 2.725) / 10))
		state.LifeBearingPlanetsCount += state.HabitableSystemsCount * 1e-8 *
			cosmos.Clamp01((ageGyr-3)/5) * metallicityFactor * tempSuitability * (dt / 1e8)

		if state.LifeBearingPlanetsCount >= 1 && e.universe.SetMilestone(cosmos.MilestoneFirstLife) {
			e.universe.RecordEvent("milestone", "Life has emerged on a planet", nil)
		}
		if state.LifeBearingPlanetsCount > 1000 && e.universe.SetMilestone(cosmos.MilestoneComplexLifeEra) {
			e.universe.RecordEvent("milestone", "Complex life is now widespread", nil)
		}
	}

	spawnEligible := ageGyr > 5 && state.LifeBearingPlanetsCount > 1000
	e.civs.Step(dt, spawnEligible)
}

// UpdateStability recomputes the composite stability index and derived
// metrics, and pushes the sample onto the bounded history.
func (e *Engine) UpdateStability() {
	state := &e.universe.CurrentState
	raw := 0.15*e.entropyFactor() +
		0.25*e.structureFactor() +
		0.15*e.darkEnergyFactor() +
		0.15*e.temperatureFactor() +
		0.20*e.anomalyFactor() +
		0.10*state.EnergyBudget

	state.StabilityIndex = cosmos.Clamp01(raw * (0.6 + 0.4/e.opts.DifficultyModifier))
	e.universe.PushStability(state.StabilityIndex)

	e.updateDerivedMetrics()
}

func (e *Engine) entropyFactor() float64 {
	entropy := e.universe.CurrentState.Entropy
	return math.Max(0, 1-math.Pow(entropy/3e14, 0.7))
}

func (e *Engine) structureFactor() float64 {
	state := &e.universe.CurrentState
	constants := e.universe.Constants
	ageGyr := state.AgeGyr()
	carryingCapacity := e.opts.ObservableGalaxies

	expectedGalaxies := math.Max(1, carryingCapacity*math.Min(ageGyr/13.8, 1)*0.3)
	galaxyFactor := math.Min(1, state.GalaxyCount/expectedGalaxies)

	expectedStars := math.Max(1, state.GalaxyCount*constants.AverageStarsPerGalaxy*0.5)
	starFactor := math.Min(1, state.StarCount/expectedStars)

	return (galaxyFactor + starFactor) / 2
}

func (e *Engine) darkEnergyFactor() float64 {
	state := &e.universe.CurrentState
	constants := e.universe.Constants

	a := state.ScaleFactor
	omegaM := (constants.DarkMatterDensity + constants.MatterDensity) / (a * a * a)
	omegaL := constants.DarkEnergyDensity

	fraction := omegaL / (omegaM + omegaL)
	if fraction < 0.95 {
		return 1.0
	}
	return math.Max(0, 1-sq((fraction-0.95)/0.05))
}

func (e *Engine) temperatureFactor() float64 {
	return math.Exp(-sq((e.universe.CurrentState.Temperature - 2.725) / 5))
}

func (e *Engine) anomalyFactor() float64 {
	unresolved := float64(e.universe.ActiveAnomalies())
	total := float64(len(e.universe.Anomalies))
	return math.Max(0, 1-math.Min(unresolved*0.008, 0.35)-math.Min(total*0.0015, 0.25))
}

// updateDerivedMetrics recomputes the composite display indices.
func (e *Engine) updateDerivedMetrics() {
	state := &e.universe.CurrentState
	metrics := &e.universe.Metrics

	metrics.ComplexityIndex = cosmos.Clamp01(
		0.3*math.Min(1, state.GalaxyCount/1e11) +
			0.3*math.Min(1, state.StellarGenerations/10) +
			0.2*state.Metallicity +
			0.2*math.Min(1, float64(state.CivilizationCount)/100))

	metrics.LifePotentialIndex = cosmos.Clamp01(
		0.4*math.Min(1, state.HabitableSystemsCount/1e9) +
			0.4*math.Min(1, state.LifeBearingPlanetsCount/1e6) +
			0.2*cosmos.Clamp01(state.Metallicity/0.3))

	metrics.CosmicHealth = cosmos.Clamp01(
		0.5*state.StabilityIndex +
			0.3*state.EnergyBudget +
			0.2*(1-state.Entropy/1e16))
}

// Statistics is a read-only snapshot of the universe's derived measures.
type Statistics struct {
	Age                float64         `json:"age"`
	AgeGyr             float64         `json:"ageGyr"`
	CosmicPhase        cosmos.Phase    `json:"cosmicPhase"`
	StabilityIndex     float64         `json:"stabilityIndex"`
	StabilityTrend     float64         `json:"stabilityTrend"`
	GalaxyCount        float64         `json:"galaxyCount"`
	StarCount          float64         `json:"starCount"`
	BlackHoleCount     float64         `json:"blackHoleCount"`
	CivilizationCount  int             `json:"civilizationCount"`
	Metallicity        float64         `json:"metallicity"`
	StellarGenerations float64         `json:"stellarGenerations"`
	EnergyBudget       float64         `json:"energyBudget"`
	Entropy            float64         `json:"entropy"`
	Temperature        float64         `json:"temperature"`
	ExpansionRate      float64         `json:"expansionRate"`
	Metrics            cosmos.Metrics  `json:"metrics"`
	Milestones         map[string]bool `json:"milestones"`
}

// GetStatistics returns the current statistics snapshot.
func (e *Engine) GetStatistics() Statistics {
	state := &e.universe.CurrentState
	return Statistics{
		Age:                state.Age,
		AgeGyr:             state.AgeGyr(),
		CosmicPhase:        state.CosmicPhase,
		StabilityIndex:     state.StabilityIndex,
		StabilityTrend:     e.universe.StabilityTrend(),
		GalaxyCount:        state.GalaxyCount,
		StarCount:          state.StarCount,
		BlackHoleCount:     state.BlackHoleCount,
		CivilizationCount:  state.CivilizationCount,
		Metallicity:        state.Metallicity,
		StellarGenerations: state.StellarGenerations,
		EnergyBudget:       state.EnergyBudget,
		Entropy:            state.Entropy,
		Temperature:        state.Temperature,
		ExpansionRate:      state.ExpansionRate,
		Metrics:            e.universe.Metrics,
		Milestones:         e.universe.Milestones,
	}
}

// GetStabilityHistory returns the bounded stability sample history.
func (e *Engine) GetStabilityHistory() []float64 {
	return e.universe.StabilityHistory
}

func sq(v float64) float64 {
	return v * v
}
