// Package predict produces heuristic forecasts of stability, anomaly
// emergence, end-condition risk, and life evolution. The predictor is
// side-effect-free: it never mutates universe state and draws no random
// numbers.
package predict

import (
	"math"
	"sort"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/sim/anomaly"
	"cosmos-server/internal/sim/endcond"
)

// Options configure a forecast run.
type Options struct {
	TimeStepYears      float64
	DifficultyModifier float64
	ObservableGalaxies float64
}

// Report is the full predictor output.
type Report struct {
	Stability      StabilityForecast  `json:"stability"`
	Anomalies      AnomalyForecast    `json:"anomalies"`
	EndConditions  []EndConditionRisk `json:"endConditions"`
	Life           LifeForecast       `json:"life"`
	OverallRisk    float64            `json:"overallRisk"`
	ActionPriority []Action           `json:"actionPriority"`
}

// StabilityForecast estimates where the stability index is heading.
type StabilityForecast struct {
	Current        float64 `json:"current"`
	Trend          float64 `json:"trend"`
	PredictedDelta float64 `json:"predictedDelta"`
	PredictedIndex float64 `json:"predictedIndex"`
	Risk           float64 `json:"risk"`
}

// AnomalyForecast estimates near-term anomaly emergence.
type AnomalyForecast struct {
	Probability float64  `json:"probability"`
	LikelyTypes []string `json:"likelyTypes"`
}

// EndConditionRisk scores one end condition.
type EndConditionRisk struct {
	Condition   string  `json:"condition"`
	Risk        float64 `json:"risk"`
	StepsToRisk int64   `json:"stepsToRisk"`
}

// LifeForecast summarizes life-evolution trends.
type LifeForecast struct {
	HabitableTrend      string  `json:"habitableTrend"`
	LifeGrowthRate      float64 `json:"lifeGrowthRate"`
	CivilizationOutlook string  `json:"civilizationOutlook"`
}

// Action is a recommended operator intervention.
type Action struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

// Forecast builds a heuristic report for the universe's next ~10 steps.
func Forecast(universe *cosmos.Universe, opts Options) *Report {
	if opts.DifficultyModifier <= 0 {
		opts.DifficultyModifier = 1.0
	}
	if opts.TimeStepYears <= 0 {
		opts.TimeStepYears = 1e7
	}
	if opts.ObservableGalaxies <= 0 {
		opts.ObservableGalaxies = universe.Constants.ObservableGalaxies
	}

	stability := forecastStability(universe)
	anomalies := forecastAnomalies(universe, opts)
	endRisks := forecastEndConditions(universe, opts)
	life := forecastLife(universe)

	maxEndRisk := 0.0
	for _, r := range endRisks {
		if r.Risk > maxEndRisk {
			maxEndRisk = r.Risk
		}
	}

	overall := cosmos.Clamp01(0.4*stability.Risk + 0.3*anomalies.Probability + 0.3*maxEndRisk)

	return &Report{
		Stability:      stability,
		Anomalies:      anomalies,
		EndConditions:  endRisks,
		Life:           life,
		OverallRisk:    overall,
		ActionPriority: actionPriority(universe, stability, maxEndRisk),
	}
}

func forecastStability(universe *cosmos.Universe) StabilityForecast {
	state := &universe.CurrentState

	unresolved := float64(universe.ActiveAnomalies())
	anomalyPenalty := unresolved * 0.002
	agePenalty := math.Min(0.01, state.AgeGyr()/200*0.01)
	entropyPenalty := math.Min(0.02, state.Entropy/1e15*0.01)

	trend := universe.StabilityTrend()
	delta := trend - anomalyPenalty - agePenalty - entropyPenalty

	// Projected index after ~10 more steps on the current trajectory.
	predicted := cosmos.Clamp01(state.StabilityIndex + delta*10)

	return StabilityForecast{
		Current:        state.StabilityIndex,
		Trend:          trend,
		PredictedDelta: delta,
		PredictedIndex: predicted,
		Risk:           cosmos.Clamp01(1 - predicted),
	}
}

func forecastAnomalies(universe *cosmos.Universe, opts Options) AnomalyForecast {
	state := &universe.CurrentState
	ageGyr := state.AgeGyr()

	activity := math.Min(1, state.GalaxyCount/opts.ObservableGalaxies)
	probability := cosmos.Clamp01(0.1 + 0.5*activity + math.Min(0.2, ageGyr/50))

	var likely []string
	for i := range anomaly.Definitions {
		def := &anomaly.Definitions[i]
		if def.Condition(state, ageGyr) {
			likely = append(likely, def.Type)
		}
	}

	return AnomalyForecast{
		Probability: probability,
		LikelyTypes: likely,
	}
}

func forecastEndConditions(universe *cosmos.Universe, opts Options) []EndConditionRisk {
	state := &universe.CurrentState
	mod := opts.DifficultyModifier
	ageGyr := state.AgeGyr()
	dt := opts.TimeStepYears

	risks := make([]EndConditionRisk, 0, len(endcond.Conditions))

	stabilityThreshold := 0.05 / mod
	risks = append(risks, EndConditionRisk{
		Condition:   endcond.ConditionInstabilityCollapse,
		Risk:        cosmos.Clamp01(1 - state.StabilityIndex/(3*stabilityThreshold)),
		StepsToRisk: -1,
	})

	heatDeathAge := 200 / mod
	heatRisk := cosmos.Clamp01(ageGyr/heatDeathAge) * (1 - state.EnergyBudget)
	heatSteps := int64(-1)
	if decay := 5e-13 * dt; state.EnergyBudget > 0.05 && decay > 0 {
		heatSteps = int64(math.Ceil((state.EnergyBudget - 0.05) / decay))
	}
	risks = append(risks, EndConditionRisk{
		Condition:   endcond.ConditionHeatDeath,
		Risk:        heatRisk,
		StepsToRisk: heatSteps,
	})

	stellarRisk := cosmos.Clamp01((ageGyr-60)/40) * (1 - math.Min(1, state.StarCount/1e6))
	risks = append(risks, EndConditionRisk{
		Condition:   endcond.ConditionStellarDeath,
		Risk:        stellarRisk,
		StepsToRisk: -1,
	})

	ripRisk := 0.0
	if state.ScaleFactor > 1 {
		ripRisk = cosmos.Clamp01(math.Log10(state.ScaleFactor) / 9)
	}
	risks = append(risks, EndConditionRisk{
		Condition:   endcond.ConditionBigRip,
		Risk:        ripRisk,
		StepsToRisk: -1,
	})

	crunchRisk := 0.0
	if state.ScaleFactor < 1 {
		crunchRisk = cosmos.Clamp01(-math.Log10(state.ScaleFactor) / 8)
	}
	risks = append(risks, EndConditionRisk{
		Condition:   endcond.ConditionBigCrunch,
		Risk:        crunchRisk,
		StepsToRisk: -1,
	})

	risks = append(risks, EndConditionRisk{
		Condition:   endcond.ConditionMaximumEntropy,
		Risk:        cosmos.Clamp01(state.Entropy/2e15) * (1 - state.EnergyBudget),
		StepsToRisk: -1,
	})

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Risk > risks[j].Risk
	})

	return risks
}

func forecastLife(universe *cosmos.Universe) LifeForecast {
	state := &universe.CurrentState
	ageGyr := state.AgeGyr()

	habitableTrend := "dormant"
	switch {
	case ageGyr >= 1 && state.Metallicity >= 0.01 && ageGyr < 10:
		habitableTrend = "growing"
	case ageGyr >= 10 && ageGyr < 50:
		habitableTrend = "stable"
	case ageGyr >= 50:
		habitableTrend = "declining"
	}

	growthRate := 0.0
	if ageGyr > 3 && state.HabitableSystemsCount > 100 {
		growthRate = state.HabitableSystemsCount * 1e-8 *
			cosmos.Clamp01((ageGyr-3)/5) * cosmos.Clamp01(state.Metallicity/0.3)
	}

	outlook := "none"
	active := universe.ActiveCivilizations()
	switch {
	case active == 0 && state.LifeBearingPlanetsCount > 1000 && ageGyr > 5:
		outlook = "emerging"
	case active > 0 && state.StabilityIndex > 0.5:
		outlook = "flourishing"
	case active > 0:
		outlook = "at risk"
	}

	return LifeForecast{
		HabitableTrend:      habitableTrend,
		LifeGrowthRate:      growthRate,
		CivilizationOutlook: outlook,
	}
}

func actionPriority(universe *cosmos.Universe, stability StabilityForecast, maxEndRisk float64) []Action {
	state := &universe.CurrentState
	actions := []Action{}

	if unresolved := universe.ActiveAnomalies(); unresolved > 10 {
		actions = append(actions, Action{
			Priority: "high",
			Action:   "resolve-anomalies",
			Reason:   "More than 10 unresolved anomalies are degrading stability",
		})
	} else if unresolved > 0 && stability.Risk > 0.5 {
		actions = append(actions, Action{
			Priority: "medium",
			Action:   "resolve-anomalies",
			Reason:   "Unresolved anomalies are compounding a declining stability index",
		})
	}

	if state.StabilityIndex < 0.3 {
		actions = append(actions, Action{
			Priority: "critical",
			Action:   "stabilize",
			Reason:   "Stability index is critically low",
		})
	}

	if state.EnergyBudget < 0.15 {
		actions = append(actions, Action{
			Priority: "medium",
			Action:   "conserve-energy",
			Reason:   "Energy budget is nearing the heat death threshold",
		})
	}

	if maxEndRisk > 0.7 {
		actions = append(actions, Action{
			Priority: "high",
			Action:   "review-end-conditions",
			Reason:   "An end condition is at elevated risk",
		})
	}

	return actions
}
