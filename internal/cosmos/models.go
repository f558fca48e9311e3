package cosmos

import (
	"time"
)

// Status is the lifecycle state of a universe.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// Difficulty selects the simulation tuning preset for a universe.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Phase is the discrete cosmic era label derived from universe age.
type Phase string

const (
	PhaseDarkAges        Phase = "dark_ages"
	PhaseReionization    Phase = "reionization"
	PhaseGalaxyFormation Phase = "galaxy_formation"
	PhaseStellarPeak     Phase = "stellar_peak"
	PhaseGradualDecline  Phase = "gradual_decline"
	PhaseTwilightEra     Phase = "twilight_era"
	PhaseDegenerateEra   Phase = "degenerate_era"
)

// Milestone names. Each flag transitions false -> true at most once per
// universe lifetime.
const (
	MilestoneFirstGalaxy        = "firstGalaxy"
	MilestoneFirstStar          = "firstStar"
	MilestoneStellarPopulationI = "stellarPopulationI"
	MilestoneFirstLife          = "firstLife"
	MilestoneComplexLifeEra     = "complexLifeEra"
	MilestoneFirstCivilization  = "firstCivilization"
	MilestoneGreatFilter        = "greatFilter"
)

// Universe is the root persisted entity. JSON field names (including the
// `_scaleFactor` underscore prefix) are part of the wire contract with
// stored documents.
type Universe struct {
	ID                string             `json:"id"`
	OwnerID           string             `json:"ownerId"`
	Name              string             `json:"name"`
	Seed              string             `json:"seed"`
	Difficulty        Difficulty         `json:"difficulty"`
	Constants         Constants          `json:"constants"`
	InitialConditions InitialConditions  `json:"initialConditions"`
	CurrentState      CurrentState       `json:"currentState"`
	Anomalies         []Anomaly          `json:"anomalies"`
	Civilizations     []Civilization     `json:"civilizations"`
	SignificantEvents []SignificantEvent `json:"significantEvents"`
	Milestones        map[string]bool    `json:"milestones"`
	Metrics           Metrics            `json:"metrics"`
	Status            Status             `json:"status"`
	EndCondition      string             `json:"endCondition,omitempty"`
	EndReason         string             `json:"endReason,omitempty"`
	FinalAge          float64            `json:"finalAge,omitempty"`
	StabilityHistory  []float64          `json:"stabilityHistory"`
	AnomalySeq        int64              `json:"anomalySeq"`
	CivilizationSeq   int64              `json:"civilizationSeq"`
	CreatedAt         time.Time          `json:"createdAt"`
	LastModified      time.Time          `json:"lastModified"`
}

// CurrentState holds the evolving macroscopic observables. Counts are
// float64 because the growth laws accumulate fractional increments.
type CurrentState struct {
	Age                     float64 `json:"age"`
	ScaleFactor             float64 `json:"_scaleFactor"`
	ExpansionRate           float64 `json:"expansionRate"`
	Temperature             float64 `json:"temperature"`
	Entropy                 float64 `json:"entropy"`
	StabilityIndex          float64 `json:"stabilityIndex"`
	GalaxyCount             float64 `json:"galaxyCount"`
	StarCount               float64 `json:"starCount"`
	BlackHoleCount          float64 `json:"blackHoleCount"`
	HabitableSystemsCount   float64 `json:"habitableSystemsCount"`
	LifeBearingPlanetsCount float64 `json:"lifeBearingPlanetsCount"`
	CivilizationCount       int     `json:"civilizationCount"`
	Metallicity             float64 `json:"metallicity"`
	CosmicPhase             Phase   `json:"cosmicPhase"`
	StellarGenerations      float64 `json:"stellarGenerations"`
	EnergyBudget            float64 `json:"energyBudget"`
}

// AgeGyr returns the universe age in gigayears.
func (s *CurrentState) AgeGyr() float64 {
	return s.Age / 1e9
}

// Constants are the physical parameters fixed at universe creation.
type Constants struct {
	HubbleConstant        float64 `json:"H0_km_s_Mpc"`
	MatterDensity         float64 `json:"matterDensity"`
	DarkMatterDensity     float64 `json:"darkMatterDensity"`
	DarkEnergyDensity     float64 `json:"darkEnergyDensity"`
	ObservableGalaxies    float64 `json:"observableGalaxies"`
	AverageStarsPerGalaxy float64 `json:"averageStarsPerGalaxy"`
}

// InitialConditions seed the starting state of a universe.
type InitialConditions struct {
	InitialTemperature  float64 `json:"initialTemperature"`
	InitialScaleFactor  float64 `json:"initialScaleFactor"`
	InitialEnergyBudget float64 `json:"initialEnergyBudget"`
	InitialEntropy      float64 `json:"initialEntropy"`
}

// AnomalyCategory groups anomaly kinds for display and filtering.
type AnomalyCategory string

const (
	CategoryGravitational   AnomalyCategory = "gravitational"
	CategoryCosmological    AnomalyCategory = "cosmological"
	CategoryStellar         AnomalyCategory = "stellar"
	CategoryQuantum         AnomalyCategory = "quantum"
	CategoryStructural      AnomalyCategory = "structural"
	CategoryElectromagnetic AnomalyCategory = "electromagnetic"
)

// Vec3 is a location in simulation space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Anomaly is a discrete stochastic perturbation. Severity starts as an
// integer in [1,5] and may decay fractionally.
type Anomaly struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Category    AnomalyCategory    `json:"category"`
	Severity    float64            `json:"severity"`
	Timestamp   time.Time          `json:"timestamp"`
	Resolved    bool               `json:"resolved"`
	ResolvedAt  *time.Time         `json:"resolvedAt,omitempty"`
	EffectsRaw  map[string]float64 `json:"effectsRaw"`
	Location    Vec3               `json:"location"`
	Radius      float64            `json:"radius"`
	Description string             `json:"description"`
	DecayRate   float64            `json:"decayRate"`
}

// CivType is the Kardashev-style classification of a civilization.
type CivType string

const (
	CivType0 CivType = "Type0"
	CivType1 CivType = "Type1"
	CivType2 CivType = "Type2"
	CivType3 CivType = "Type3"
)

// Civilization is a population entity evolving within a universe.
// CreatedAt and ExtinctionAge are universe ages in years; Age is years
// since creation within universe time.
type Civilization struct {
	ID                string     `json:"id"`
	Type              CivType    `json:"type"`
	CreatedAt         float64    `json:"createdAt"`
	Age               float64    `json:"age"`
	DevelopmentLevel  float64    `json:"developmentLevel"`
	Technology        float64    `json:"technology"`
	Stability         float64    `json:"stability"`
	Population        float64    `json:"population"`
	ResourceDepletion float64    `json:"resourceDepletion"`
	Warlikeness       float64    `json:"warlikeness"`
	Extinct           bool       `json:"extinct"`
	ExtinctionDate    *time.Time `json:"extinctionDate,omitempty"`
	ExtinctionAge     float64    `json:"extinctionAge,omitempty"`
	ExtinctionCause   string     `json:"extinctionCause,omitempty"`
}

// SignificantEvent records a notable occurrence in universe history.
type SignificantEvent struct {
	Timestamp   time.Time          `json:"timestamp"`
	Age         float64            `json:"age"`
	AgeGyr      string             `json:"ageGyr"`
	Type        string             `json:"type"`
	Description string             `json:"description"`
	Effects     map[string]float64 `json:"effects,omitempty"`
}

// Metrics are derived aggregate measures recomputed during simulation.
type Metrics struct {
	TotalSteps            int64   `json:"totalSteps"`
	TotalAnomalies        int64   `json:"totalAnomalies"`
	AnomaliesResolved     int64   `json:"anomaliesResolved"`
	AnomalyResolutionRate float64 `json:"anomalyResolutionRate"`
	PlayerInterventions   int64   `json:"playerInterventions"`
	ComplexityIndex       float64 `json:"complexityIndex"`
	LifePotentialIndex    float64 `json:"lifePotentialIndex"`
	CosmicHealth          float64 `json:"cosmicHealth"`
}
