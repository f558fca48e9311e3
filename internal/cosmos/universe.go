package cosmos

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Bounded-collection limits. These are correctness requirements, not
// optimizations: the persisted document size bounds storage cost.
const (
	MaxAnomalies           = 200
	MaxActiveCivilizations = 500
	MaxExtinctRetained     = 100
	MaxEvents              = 2000
	EventEvictBatch        = 500
	StabilityHistorySize   = 100
)

// NewID returns a random identifier with the given prefix.
func NewID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}

// NewUniverse creates a universe in its initial state. The seed is
// immutable after creation.
func NewUniverse(ownerID, name, seed string, difficulty Difficulty, constants Constants, initial InitialConditions) *Universe {
	now := time.Now().UTC()

	return &Universe{
		ID:                NewID("uni"),
		OwnerID:           ownerID,
		Name:              name,
		Seed:              seed,
		Difficulty:        difficulty,
		Constants:         constants,
		InitialConditions: initial,
		CurrentState: CurrentState{
			Age:          0,
			ScaleFactor:  initial.InitialScaleFactor,
			Temperature:  initial.InitialTemperature,
			Entropy:      initial.InitialEntropy,
			EnergyBudget: initial.InitialEnergyBudget,
			CosmicPhase:  PhaseDarkAges,
			// A fresh universe starts perfectly stable.
			StabilityIndex: 1.0,
		},
		Anomalies:         []Anomaly{},
		Civilizations:     []Civilization{},
		SignificantEvents: []SignificantEvent{},
		Milestones:        map[string]bool{},
		Status:            StatusRunning,
		StabilityHistory:  []float64{},
		CreatedAt:         now,
		LastModified:      now,
	}
}

// Touch updates the last-modified timestamp. Called on every mutation path.
func (u *Universe) Touch() {
	u.LastModified = time.Now().UTC()
}

// Ended reports whether the universe has reached a terminal state.
func (u *Universe) Ended() bool {
	return u.Status == StatusEnded
}

// SetMilestone marks a named milestone, returning true only on the first
// transition. Once set, a milestone never reverts.
func (u *Universe) SetMilestone(name string) bool {
	if u.Milestones[name] {
		return false
	}
	u.Milestones[name] = true
	return true
}

// RecordEvent appends a significant event tagged with the current universe
// age. On overflow past MaxEvents the oldest EventEvictBatch entries are
// dropped in one slice operation.
func (u *Universe) RecordEvent(eventType, description string, effects map[string]float64) {
	event := SignificantEvent{
		Timestamp:   time.Now().UTC(),
		Age:         u.CurrentState.Age,
		AgeGyr:      fmt.Sprintf("%.3f", u.CurrentState.AgeGyr()),
		Type:        eventType,
		Description: description,
		Effects:     effects,
	}

	u.SignificantEvents = append(u.SignificantEvents, event)
	if len(u.SignificantEvents) > MaxEvents {
		u.SignificantEvents = append([]SignificantEvent{}, u.SignificantEvents[EventEvictBatch:]...)
	}
}

// PushStability appends a stability sample to the bounded history ring.
func (u *Universe) PushStability(value float64) {
	u.StabilityHistory = append(u.StabilityHistory, value)
	if len(u.StabilityHistory) > StabilityHistorySize {
		u.StabilityHistory = u.StabilityHistory[len(u.StabilityHistory)-StabilityHistorySize:]
	}
}

// StabilityTrend is mean(last 10 samples) - mean(prior 10 samples), or 0
// when fewer than 20 samples exist.
func (u *Universe) StabilityTrend() float64 {
	n := len(u.StabilityHistory)
	if n < 20 {
		return 0
	}
	recent := mean(u.StabilityHistory[n-10:])
	prior := mean(u.StabilityHistory[n-20 : n-10])
	return recent - prior
}

// RecentStabilityMean averages the last n history samples (or all of them
// when fewer exist). Returns the current stability index when the history
// is empty.
func (u *Universe) RecentStabilityMean(n int) float64 {
	h := u.StabilityHistory
	if len(h) == 0 {
		return u.CurrentState.StabilityIndex
	}
	if len(h) > n {
		h = h[len(h)-n:]
	}
	return mean(h)
}

// ActiveAnomalies returns the unresolved anomaly count.
func (u *Universe) ActiveAnomalies() int {
	count := 0
	for i := range u.Anomalies {
		if !u.Anomalies[i].Resolved {
			count++
		}
	}
	return count
}

// ActiveCivilizations returns the non-extinct civilization count.
func (u *Universe) ActiveCivilizations() int {
	count := 0
	for i := range u.Civilizations {
		if !u.Civilizations[i].Extinct {
			count++
		}
	}
	return count
}

// NextAnomalyID issues the next sequential anomaly identifier.
func (u *Universe) NextAnomalyID() string {
	u.AnomalySeq++
	return fmt.Sprintf("anomaly-%d", u.AnomalySeq)
}

// NextCivilizationID issues the next sequential civilization identifier.
func (u *Universe) NextCivilizationID() string {
	u.CivilizationSeq++
	return fmt.Sprintf("civ-%d", u.CivilizationSeq)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Clamp restricts v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// PhaseForAge maps an age in gigayears to its cosmic phase.
func PhaseForAge(ageGyr float64) Phase {
	switch {
	case ageGyr < 0.1:
		return PhaseDarkAges
	case ageGyr < 1:
		return PhaseReionization
	case ageGyr < 5:
		return PhaseGalaxyFormation
	case ageGyr < 10:
		return PhaseStellarPeak
	case ageGyr < 50:
		return PhaseGradualDecline
	case ageGyr < 100:
		return PhaseTwilightEra
	default:
		return PhaseDegenerateEra
	}
}
