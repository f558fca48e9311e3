// Package endcond evaluates universe termination predicates and emits
// advance warnings as thresholds approach.
package endcond

import (
	"fmt"
	"log/slog"

	"cosmos-server/internal/cosmos"
)

// Termination predicates are evaluated in declared order; the first match
// ends the universe.
const (
	ConditionInstabilityCollapse = "instability-collapse"
	ConditionHeatDeath           = "heat-death"
	ConditionStellarDeath        = "stellar-death"
	ConditionBigRip              = "big-rip"
	ConditionBigCrunch           = "big-crunch"
	ConditionMaximumEntropy      = "maximum-entropy"
)

// Conditions lists every end condition in evaluation order.
var Conditions = []string{
	ConditionInstabilityCollapse,
	ConditionHeatDeath,
	ConditionStellarDeath,
	ConditionBigRip,
	ConditionBigCrunch,
	ConditionMaximumEntropy,
}

// Options configure a checker for one simulation run.
type Options struct {
	DifficultyModifier float64
}

// Checker evaluates end conditions for a single universe.
type Checker struct {
	universe *cosmos.Universe
	opts     Options
	logger   *slog.Logger
}

func NewChecker(universe *cosmos.Universe, opts Options, logger *slog.Logger) *Checker {
	if opts.DifficultyModifier <= 0 {
		opts.DifficultyModifier = 1.0
	}
	return &Checker{universe: universe, opts: opts, logger: logger}
}

// Check evaluates the termination predicates in order. On the first match
// it transitions the universe to ended, records the terminal event, and
// returns true. An ended universe is never re-terminated.
func (c *Checker) Check() bool {
	if c.universe.Ended() {
		return true
	}

	condition, reason := c.evaluate()
	if condition == "" {
		return false
	}

	state := &c.universe.CurrentState
	c.universe.Status = cosmos.StatusEnded
	c.universe.EndCondition = condition
	c.universe.EndReason = reason
	c.universe.FinalAge = state.Age
	c.universe.RecordEvent("universe_end", reason, map[string]float64{
		"finalAge":       state.Age,
		"stabilityIndex": state.StabilityIndex,
	})
	c.universe.Touch()

	c.logger.Info("Universe ended",
		"universe_id", c.universe.ID,
		"condition", condition,
		"final_age_gyr", state.AgeGyr(),
	)

	return true
}

func (c *Checker) evaluate() (condition, reason string) {
	state := &c.universe.CurrentState
	mod := c.opts.DifficultyModifier
	ageGyr := state.AgeGyr()

	switch {
	case state.StabilityIndex < 0.05/mod && c.universe.RecentStabilityMean(10) < 0.10/mod:
		return ConditionInstabilityCollapse,
			"Cosmic stability has collapsed beyond recovery"
	case ageGyr > 200/mod && state.EnergyBudget < 0.05:
		return ConditionHeatDeath,
			"The universe has exhausted its usable energy"
	case ageGyr > 80 && state.StarCount < 1e4 && state.EnergyBudget < 0.08:
		return ConditionStellarDeath,
			"The last stars have burned out"
	case state.ScaleFactor > 1e9:
		return ConditionBigRip,
			"Runaway expansion has torn spacetime apart"
	case state.ScaleFactor < 1e-8:
		return ConditionBigCrunch,
			"The universe has collapsed back on itself"
	case state.Entropy > 2e15 && state.EnergyBudget < 0.02:
		return ConditionMaximumEntropy,
			"Entropy has reached its maximum; no work remains possible"
	default:
		return "", ""
	}
}

// Warning is a non-fatal threshold alert.
type Warning struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// Warnings reports approaching end-condition thresholds.
func (c *Checker) Warnings() []Warning {
	state := &c.universe.CurrentState
	mod := c.opts.DifficultyModifier
	ageGyr := state.AgeGyr()

	warnings := []Warning{}

	stabilityThreshold := 0.05 / mod
	if state.StabilityIndex >= stabilityThreshold && state.StabilityIndex < 3*stabilityThreshold {
		severity := "high"
		if state.StabilityIndex < 1.5*stabilityThreshold {
			severity = "critical"
		}
		warnings = append(warnings, Warning{
			Type:           ConditionInstabilityCollapse,
			Severity:       severity,
			Message:        fmt.Sprintf("Stability index %.3f is approaching the collapse threshold", state.StabilityIndex),
			Recommendation: "Resolve active anomalies to restore stability",
		})
	}

	heatDeathAge := 200 / mod
	if ageGyr > 0.8*heatDeathAge {
		warnings = append(warnings, Warning{
			Type:           ConditionHeatDeath,
			Severity:       "medium",
			Message:        fmt.Sprintf("Universe age %.1f Gyr is past 80%% of the heat death horizon", ageGyr),
			Recommendation: "Conserve the remaining energy budget",
		})
	}

	if state.Entropy > 1.5e15 {
		warnings = append(warnings, Warning{
			Type:           ConditionMaximumEntropy,
			Severity:       "high",
			Message:        "Entropy is nearing its maximum",
			Recommendation: "Resolve anomalies to reduce entropy",
		})
	}

	if state.EnergyBudget < 0.15 {
		severity := "medium"
		if state.EnergyBudget < 0.08 {
			severity = "high"
		}
		warnings = append(warnings, Warning{
			Type:           ConditionHeatDeath,
			Severity:       severity,
			Message:        fmt.Sprintf("Energy budget has fallen to %.2f", state.EnergyBudget),
			Recommendation: "Resolve anomalies to recover usable energy",
		})
	}

	if state.ScaleFactor > 1e8 {
		warnings = append(warnings, Warning{
			Type:           ConditionBigRip,
			Severity:       "high",
			Message:        "Expansion is accelerating toward a big rip",
			Recommendation: "Counteract dark energy surges quickly",
		})
	}

	return warnings
}
