// Package rng provides the deterministic pseudo-random streams used by the
// simulation kernel. Every stochastic decision in the kernel draws from a
// Stream so that replaying a seed reproduces the same trajectory; the ambient
// math/rand source is never used.
package rng

import (
	"hash/fnv"
	"math"
)

// Stream is a reproducible sequence of uniform doubles derived from a seed
// string. Distinct logical streams (physics vs anomaly generation) derive
// from the same base seed with a suffix so they cannot cross-contaminate.
type Stream struct {
	seed  string
	state uint64

	// Box-Muller produces values in pairs; the spare is cached.
	hasSpare bool
	spare    float64
}

// New creates a stream seeded from the given string.
func New(seed string) *Stream {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	state := h.Sum64()
	if state == 0 {
		state = 0x9E3779B97F4A7C15
	}
	return &Stream{seed: seed, state: state}
}

// Derive creates an independent stream for a named purpose, e.g.
// Derive("anomaly") on seed "base" yields the stream seeded "base_anomaly".
func (s *Stream) Derive(purpose string) *Stream {
	return New(s.seed + "_" + purpose)
}

// Seed returns the seed string this stream was created from.
func (s *Stream) Seed() string {
	return s.seed
}

// next advances the splitmix64 state and returns the next 64-bit value.
func (s *Stream) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a uniform double in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.next()>>11) / (1 << 53)
}

// Range returns a uniform double in [min, max).
func (s *Stream) Range(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + s.Float64()*(max-min)
}

// Angle returns a uniform angle in [0, 2π).
func (s *Stream) Angle() float64 {
	return s.Float64() * 2 * math.Pi
}

// Norm returns a normally distributed value with the given mean and standard
// deviation, using the Box-Muller transform on two uniform draws.
func (s *Stream) Norm(mean, stddev float64) float64 {
	if s.hasSpare {
		s.hasSpare = false
		return mean + stddev*s.spare
	}

	u1 := s.Float64()
	u2 := s.Float64()
	// Guard against log(0).
	if u1 <= 0 {
		u1 = math.SmallestNonzeroFloat64
	}

	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2

	s.spare = r * math.Sin(theta)
	s.hasSpare = true

	return mean + stddev*r*math.Cos(theta)
}
