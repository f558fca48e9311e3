package cosmos

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the per-difficulty knobs the step orchestrator derives its
// module options from.
type Tuning struct {
	TimeStepYears                float64 `yaml:"timeStepYears"`
	AnomalyProbabilityScale      float64 `yaml:"anomalyProbabilityScale"`
	MaxAnomalyPerStep            int     `yaml:"maxAnomalyPerStep"`
	ObservableGalaxiesMultiplier float64 `yaml:"observableGalaxiesMultiplier"`
	DifficultyModifier           float64 `yaml:"difficultyModifier"`
	CivilizationCullInterval     int64   `yaml:"civilizationCullInterval"`
}

// DefaultTuning returns the built-in difficulty presets.
func DefaultTuning() map[Difficulty]Tuning {
	return map[Difficulty]Tuning{
		DifficultyBeginner: {
			TimeStepYears:                5e7,
			AnomalyProbabilityScale:      0.5,
			MaxAnomalyPerStep:            2,
			ObservableGalaxiesMultiplier: 1.0,
			DifficultyModifier:           0.75,
			CivilizationCullInterval:     10,
		},
		DifficultyIntermediate: {
			TimeStepYears:                2e7,
			AnomalyProbabilityScale:      1.0,
			MaxAnomalyPerStep:            3,
			ObservableGalaxiesMultiplier: 1.0,
			DifficultyModifier:           1.0,
			CivilizationCullInterval:     10,
		},
		DifficultyAdvanced: {
			TimeStepYears:                1e7,
			AnomalyProbabilityScale:      2.0,
			MaxAnomalyPerStep:            5,
			ObservableGalaxiesMultiplier: 0.8,
			DifficultyModifier:           1.5,
			CivilizationCullInterval:     10,
		},
	}
}

// LoadTuning reads difficulty presets from a YAML file, falling back to the
// built-in defaults for any difficulty or field the file omits.
func LoadTuning(path string) (map[Difficulty]Tuning, error) {
	presets := DefaultTuning()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	var overrides map[Difficulty]Tuning
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}

	for difficulty, override := range overrides {
		base, ok := presets[difficulty]
		if !ok {
			continue
		}
		if override.TimeStepYears > 0 {
			base.TimeStepYears = override.TimeStepYears
		}
		if override.AnomalyProbabilityScale > 0 {
			base.AnomalyProbabilityScale = override.AnomalyProbabilityScale
		}
		if override.MaxAnomalyPerStep > 0 {
			base.MaxAnomalyPerStep = override.MaxAnomalyPerStep
		}
		if override.ObservableGalaxiesMultiplier > 0 {
			base.ObservableGalaxiesMultiplier = override.ObservableGalaxiesMultiplier
		}
		if override.DifficultyModifier > 0 {
			base.DifficultyModifier = override.DifficultyModifier
		}
		if override.CivilizationCullInterval > 0 {
			base.CivilizationCullInterval = override.CivilizationCullInterval
		}
		presets[difficulty] = base
	}

	return presets, nil
}

// ParseDifficulty validates a difficulty name, defaulting to Beginner when
// empty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "":
		return DifficultyBeginner, nil
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// DefaultConstants returns the standard physical parameters for a new
// universe.
func DefaultConstants() Constants {
	return Constants{
		HubbleConstant:        67.4,
		MatterDensity:         0.05,
		DarkMatterDensity:     0.26,
		DarkEnergyDensity:     0.69,
		ObservableGalaxies:    2e12,
		AverageStarsPerGalaxy: 1e8,
	}
}

// DefaultInitialConditions returns the standard starting state.
func DefaultInitialConditions() InitialConditions {
	return InitialConditions{
		InitialTemperature:  2.725,
		InitialScaleFactor:  1.0,
		InitialEnergyBudget: 1.0,
		InitialEntropy:      0,
	}
}
