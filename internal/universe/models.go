package universe

import (
	"time"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/sim"
	"cosmos-server/internal/sim/anomaly"
	"cosmos-server/internal/sim/endcond"
	"cosmos-server/internal/sim/physics"
	"cosmos-server/internal/sim/predict"
)

// CreateRequest is the body for POST /universe. All fields are optional;
// defaults are a random seed, Beginner difficulty, and standard constants.
type CreateRequest struct {
	Name              string                    `json:"name"`
	Seed              string                    `json:"seed"`
	Difficulty        string                    `json:"difficulty"`
	Constants         *cosmos.Constants         `json:"constants"`
	InitialConditions *cosmos.InitialConditions `json:"initialConditions"`
}

// SimulateRequest is the body for POST /universe/{id}/simulate.
type SimulateRequest struct {
	Steps int `json:"steps"`
}

// ResolveAnomalyRequest is the body for POST /universe/{id}/resolve-anomaly.
type ResolveAnomalyRequest struct {
	AnomalyID string `json:"anomalyId"`
}

// CleanupRequest is the body for POST /universe/{id}/cleanup-anomalies.
type CleanupRequest struct {
	KeepRecentMinutes int `json:"keepRecentMinutes"`
}

// Summary is the list projection of a universe.
type Summary struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Difficulty        cosmos.Difficulty `json:"difficulty"`
	Status            cosmos.Status     `json:"status"`
	AgeGyr            float64           `json:"ageGyr"`
	CosmicPhase       cosmos.Phase      `json:"cosmicPhase"`
	StabilityIndex    float64           `json:"stabilityIndex"`
	CivilizationCount int               `json:"civilizationCount"`
	EndCondition      string            `json:"endCondition,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	LastModified      time.Time         `json:"lastModified"`
}

func summarize(u *cosmos.Universe) Summary {
	return Summary{
		ID:                u.ID,
		Name:              u.Name,
		Difficulty:        u.Difficulty,
		Status:            u.Status,
		AgeGyr:            u.CurrentState.AgeGyr(),
		CosmicPhase:       u.CurrentState.CosmicPhase,
		StabilityIndex:    u.CurrentState.StabilityIndex,
		CivilizationCount: u.CurrentState.CivilizationCount,
		EndCondition:      u.EndCondition,
		CreatedAt:         u.CreatedAt,
		LastModified:      u.LastModified,
	}
}

// Response envelopes. Every endpoint answers {ok: true, ...} on success.

type ListResponse struct {
	OK        bool      `json:"ok"`
	Universes []Summary `json:"universes"`
}

type UniverseResponse struct {
	OK       bool             `json:"ok"`
	Universe *cosmos.Universe `json:"universe"`
}

type DeleteResponse struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted"`
}

type SimulateResponse struct {
	OK       bool             `json:"ok"`
	Report   *sim.Result      `json:"report"`
	Universe *cosmos.Universe `json:"universe"`
}

type ResolveAnomalyResponse struct {
	OK         bool                `json:"ok"`
	Resolution *anomaly.Resolution `json:"resolution"`
}

type StatsResponse struct {
	OK    bool               `json:"ok"`
	Stats physics.Statistics `json:"stats"`
}

type AnomaliesResponse struct {
	OK       bool             `json:"ok"`
	Active   []cosmos.Anomaly `json:"active"`
	Resolved []cosmos.Anomaly `json:"resolved"`
}

type PredictionsResponse struct {
	OK          bool            `json:"ok"`
	Predictions *predict.Report `json:"predictions"`
}

type EndConditionsResponse struct {
	OK       bool              `json:"ok"`
	Status   sim.EndStatus     `json:"status"`
	Warnings []endcond.Warning `json:"warnings"`
}

type CleanupResponse struct {
	OK        bool `json:"ok"`
	Removed   int  `json:"removed"`
	Remaining int  `json:"remaining"`
}
