package anomaly

import (
	"cosmos-server/internal/cosmos"
)

// Definition describes one anomaly kind as data: its trigger probability,
// spawn condition, and severity-scaled effect map. Anomaly kinds are a
// closed set, so they are declared as a table rather than a type hierarchy;
// this keeps the determinism audit trail simple and serialization trivial.
type Definition struct {
	Type        string
	Category    cosmos.AnomalyCategory
	BaseProb    float64
	Description string
	Condition   func(state *cosmos.CurrentState, ageGyr float64) bool
	Effects     func(severity float64) map[string]float64
}

// Definitions lists every anomaly kind in declared order. Generation
// iterates this order, so the order is part of the deterministic contract.
var Definitions = []Definition{
	{
		Type:        "blackHoleMerger",
		Category:    cosmos.CategoryGravitational,
		BaseProb:    0.001,
		Description: "Two supermassive black holes have merged, sending gravitational waves through spacetime",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return state.BlackHoleCount > 1e5
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"stability": -0.008 * s,
				"entropy":   5e6 * s,
			}
		},
	},
	{
		Type:        "darkEnergySurge",
		Category:    cosmos.CategoryCosmological,
		BaseProb:    0.0004,
		Description: "A surge of dark energy is accelerating local expansion",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return ageGyr > 5
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"expansionBoost":  0.0008 * s,
				"scaleFactorBump": 0.001 * s,
				"stability":       -0.012 * s,
			}
		},
	},
	{
		Type:        "supernovaChain",
		Category:    cosmos.CategoryStellar,
		BaseProb:    0.0015,
		Description: "A chain of supernovae is enriching the interstellar medium",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return state.StarCount > 1e9
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"metallicity": 0.0005 * s,
				"starCount":   -100 * s,
				"stability":   -0.005 * s,
			}
		},
	},
	{
		Type:        "quantumFluctuation",
		Category:    cosmos.CategoryQuantum,
		BaseProb:    0.0003,
		Description: "A macroscopic quantum fluctuation is distorting local physics",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return true
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"entropy":   -1e6 * s,
				"stability": -0.015 * s,
			}
		},
	},
	{
		Type:        "galacticCollision",
		Category:    cosmos.CategoryStructural,
		BaseProb:    0.0008,
		Description: "Two galaxies are colliding, triggering waves of star formation",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return state.GalaxyCount > 1e6 && ageGyr > 2
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"starCount":      5000 * s,
				"blackHoleCount": 10 * s,
				"stability":      -0.007 * s,
			}
		},
	},
	{
		Type:        "cosmicVoid",
		Category:    cosmos.CategoryStructural,
		BaseProb:    0.0003,
		Description: "An expanding cosmic void is swallowing galaxies",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return ageGyr > 3
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"galaxyCount": -1000 * s,
				"stability":   -0.01 * s,
			}
		},
	},
	{
		Type:        "magneticReversal",
		Category:    cosmos.CategoryElectromagnetic,
		BaseProb:    0.0005,
		Description: "Galactic magnetic fields are reversing, stripping planetary atmospheres",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return state.GalaxyCount > 1e5
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"habitable": -100 * s,
				"stability": -0.004 * s,
			}
		},
	},
	{
		Type:        "darkMatterClump",
		Category:    cosmos.CategoryGravitational,
		BaseProb:    0.0006,
		Description: "A dense dark matter clump is perturbing nearby orbits",
		Condition: func(state *cosmos.CurrentState, ageGyr float64) bool {
			return ageGyr > 1
		},
		Effects: func(s float64) map[string]float64 {
			return map[string]float64{
				"stability": -0.006 * s,
			}
		},
	},
}

// DefinitionFor returns the definition for a type name, or nil.
func DefinitionFor(anomalyType string) *Definition {
	for i := range Definitions {
		if Definitions[i].Type == anomalyType {
			return &Definitions[i]
		}
	}
	return nil
}
