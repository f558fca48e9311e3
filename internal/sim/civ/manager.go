// Package civ manages the civilization population of a universe: spawning,
// demographic evolution, extinction checks, and bounded-memory culling.
package civ

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/cosmos/rng"
)

const (
	maxNewPerStep      = 10
	baseExtinctionRisk = 1e-5
	maxExtinctionRisk  = 0.5
	catastropheChance  = 1e-6
)

// Manager evolves the civilization slice of a single universe. All
// stochastic decisions draw from the engine's deterministic stream.
type Manager struct {
	universe     *cosmos.Universe
	rng          *rng.Stream
	cullInterval int64
	logger       *slog.Logger
}

func NewManager(universe *cosmos.Universe, stream *rng.Stream, cullInterval int64, logger *slog.Logger) *Manager {
	if cullInterval <= 0 {
		cullInterval = 10
	}
	return &Manager{
		universe:     universe,
		rng:          stream,
		cullInterval: cullInterval,
		logger:       logger,
	}
}

// Step runs one tick of civilization dynamics: spawning when the life
// conditions hold, then evolution, catastrophe checks, and periodic culling.
func (m *Manager) Step(dt float64, spawnEligible bool) {
	state := &m.universe.CurrentState

	if spawnEligible {
		m.spawn()
	}

	if len(m.universe.Civilizations) > 0 {
		m.evolve(dt, state.StabilityIndex)
		m.checkCatastrophe()
	}

	if m.universe.Metrics.TotalSteps%m.cullInterval == 0 {
		m.cull()
	}

	state.CivilizationCount = m.universe.ActiveCivilizations()
}

// spawn adds new civilizations toward the expected count implied by the
// life-bearing planet population.
func (m *Manager) spawn() {
	state := &m.universe.CurrentState

	expected := math.Floor(state.LifeBearingPlanetsCount * 1e-7 * (1 + 0.5*state.Metallicity))
	active := m.universe.ActiveCivilizations()

	toAdd := int(expected) - state.CivilizationCount
	if room := cosmos.MaxActiveCivilizations - active; toAdd > room {
		toAdd = room
	}
	if toAdd > maxNewPerStep {
		toAdd = maxNewPerStep
	}

	for i := 0; i < toAdd; i++ {
		civilization := m.newCivilization()
		m.universe.Civilizations = append(m.universe.Civilizations, civilization)

		if m.universe.SetMilestone(cosmos.MilestoneFirstCivilization) {
			m.universe.RecordEvent("milestone", "The first civilization has emerged", nil)
		}
	}

	if toAdd > 0 {
		m.logger.Debug("Civilizations spawned",
			"universe_id", m.universe.ID,
			"count", toAdd,
			"active", m.universe.ActiveCivilizations(),
		)
	}
}

func (m *Manager) newCivilization() cosmos.Civilization {
	state := &m.universe.CurrentState

	return cosmos.Civilization{
		ID:               m.universe.NextCivilizationID(),
		Type:             m.initialType(state.AgeGyr()),
		CreatedAt:        state.Age,
		Age:              0,
		DevelopmentLevel: m.rng.Float64(),
		Technology:       m.rng.Float64() * 10,
		Stability:        0.5 + m.rng.Float64()*0.5,
		Warlikeness:      m.rng.Float64(),
		Population:       1e6 + m.rng.Float64()*1e9,
	}
}

// initialType is age-gated: young universes only produce Type0, older ones
// rarely seed more advanced civilizations.
func (m *Manager) initialType(ageGyr float64) cosmos.CivType {
	if ageGyr < 8 {
		return cosmos.CivType0
	}

	r := m.rng.Float64()
	switch {
	case r < 0.98:
		return cosmos.CivType0
	case r < 0.998:
		return cosmos.CivType1
	case r < 0.9998:
		return cosmos.CivType2
	default:
		return cosmos.CivType3
	}
}

func (m *Manager) evolve(dt, cosmicStability float64) {
	for i := range m.universe.Civilizations {
		c := &m.universe.Civilizations[i]
		if c.Extinct {
			continue
		}

		c.Age += dt

		techGrowth := 0.01 * (dt / 1e8) * (1 + c.DevelopmentLevel)
		c.Technology = math.Min(100, c.Technology+techGrowth)
		c.ResourceDepletion = math.Min(1, c.ResourceDepletion+techGrowth*0.005)

		m.promote(c)

		c.Stability = cosmos.Clamp01(c.Stability +
			m.rng.Norm(0, 0.01) -
			0.02*c.ResourceDepletion -
			0.01*c.Warlikeness)

		if m.rollExtinction(c, cosmicStability) {
			m.extinguish(c)
		}
	}
}

// promote advances the civilization type when technology crosses its
// threshold and the per-step probability roll succeeds.
func (m *Manager) promote(c *cosmos.Civilization) {
	switch c.Type {
	case cosmos.CivType0:
		if c.Technology >= 20 && m.rng.Float64() < 1e-3 {
			c.Type = cosmos.CivType1
		}
	case cosmos.CivType1:
		if c.Technology >= 50 && m.rng.Float64() < 1e-4 {
			c.Type = cosmos.CivType2
		}
	case cosmos.CivType2:
		if c.Technology >= 80 && m.rng.Float64() < 1e-5 {
			c.Type = cosmos.CivType3
		}
	}
}

func (m *Manager) rollExtinction(c *cosmos.Civilization, cosmicStability float64) bool {
	risk := baseExtinctionRisk

	if c.Stability < 0.1 {
		risk *= (1 - c.Stability) * 100
	} else if c.Stability < 0.3 {
		risk *= (1 - c.Stability) * 50
	}
	if c.ResourceDepletion > 0.8 {
		risk *= 20
	}
	if c.Warlikeness > 0.8 {
		risk *= 10
	}

	switch c.Type {
	case cosmos.CivType0:
		risk *= 5
	case cosmos.CivType3:
		risk *= 0.1
	}

	if cosmicStability < 0.5 {
		risk *= (1 - cosmicStability) * 3
	}
	if c.Age < 1e7 {
		risk *= 2
	} else if c.Age > 1e9 {
		risk *= 1.5
	}

	if risk > maxExtinctionRisk {
		risk = maxExtinctionRisk
	}

	return m.rng.Float64() < risk
}

func (m *Manager) extinguish(c *cosmos.Civilization) {
	now := time.Now().UTC()
	c.Extinct = true
	c.ExtinctionDate = &now
	c.ExtinctionAge = m.universe.CurrentState.Age
	c.ExtinctionCause = extinctionCause(c)

	m.logger.Debug("Civilization extinct",
		"universe_id", m.universe.ID,
		"civilization_id", c.ID,
		"cause", c.ExtinctionCause,
		"age", c.Age,
	)
}

func extinctionCause(c *cosmos.Civilization) string {
	switch {
	case c.Stability < 0.3:
		return "societal collapse"
	case c.ResourceDepletion > 0.8:
		return "resource exhaustion"
	case c.Warlikeness > 0.8:
		return "self-destruction"
	default:
		return "natural decline"
	}
}

// checkCatastrophe applies the one-shot great filter event: a rare roll
// that wipes out 50-90% of active civilizations.
func (m *Manager) checkCatastrophe() {
	if m.universe.Milestones[cosmos.MilestoneGreatFilter] {
		return
	}
	if m.rng.Float64() >= catastropheChance {
		return
	}

	active := m.universe.ActiveCivilizations()
	casualties := int(math.Floor(float64(active) * (0.5 + m.rng.Float64()*0.4)))

	killed := 0
	for i := range m.universe.Civilizations {
		if killed >= casualties {
			break
		}
		c := &m.universe.Civilizations[i]
		if c.Extinct {
			continue
		}
		c.Stability = 0
		m.extinguish(c)
		c.ExtinctionCause = "great filter event"
		killed++
	}

	m.universe.SetMilestone(cosmos.MilestoneGreatFilter)
	m.universe.RecordEvent("catastrophe", "A great filter event has devastated the universe's civilizations",
		map[string]float64{"civilizationsLost": float64(killed)})
}

// cull retains all non-extinct civilizations plus the most recent
// extinctions (by extinction age), discarding older extinct records.
func (m *Manager) cull() {
	var extinctAges []float64
	for i := range m.universe.Civilizations {
		if m.universe.Civilizations[i].Extinct {
			extinctAges = append(extinctAges, m.universe.Civilizations[i].ExtinctionAge)
		}
	}
	if len(extinctAges) <= cosmos.MaxExtinctRetained {
		return
	}

	sort.Float64s(extinctAges)
	toDrop := len(extinctAges) - cosmos.MaxExtinctRetained
	cutoff := extinctAges[toDrop]

	tieBudget := toDrop
	for _, age := range extinctAges[:toDrop] {
		if age < cutoff {
			tieBudget--
		}
	}

	kept := make([]cosmos.Civilization, 0, len(m.universe.Civilizations)-toDrop)
	for _, c := range m.universe.Civilizations {
		if c.Extinct {
			if c.ExtinctionAge < cutoff {
				continue
			}
			// Ties at the cutoff age drop in slice order until the
			// retention cap is met.
			if c.ExtinctionAge == cutoff && tieBudget > 0 {
				tieBudget--
				continue
			}
		}
		kept = append(kept, c)
	}
	m.universe.Civilizations = kept

	m.logger.Debug("Extinct civilizations culled",
		"universe_id", m.universe.ID,
		"retained", len(kept),
	)
}
