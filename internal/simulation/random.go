package simulation

import (
	"math"
	"math/rand/v2"
)

// Source is the entropy every model draws from. Each model consumes draws in
// a fixed order, so a seeded Source replays identical readings.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// NewSource returns a PCG-backed source. It is not safe for concurrent use;
// the orchestrator serialises access.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(rng Source, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// intBetween draws an integer in [lo, hi].
func intBetween(rng Source, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func ptr(v float64) *float64 { return &v }
