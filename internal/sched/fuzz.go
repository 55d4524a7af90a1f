package sched

import (
	"math/rand"

	"github.com/conorfennell/decksched/internal/domain"
)

// Interval fuzz spreads reviews that would otherwise cluster on the same
// day. The RNG is seeded from the card id and due value so a given card's
// schedule is reproducible.

// fuzzRange returns the inclusive band an interval may wander in.
func fuzzRange(ivl int) (int, int) {
	switch {
	case ivl < 2:
		return 1, 1
	case ivl == 2:
		return 2, 3
	}
	var fuzz int
	switch {
	case ivl < 7:
		fuzz = int(float64(ivl) * 0.25)
	case ivl < 30:
		fuzz = maxInt(2, int(float64(ivl)*0.15))
	default:
		fuzz = maxInt(4, int(float64(ivl)*0.05))
	}
	fuzz = maxInt(fuzz, 1)
	return ivl - fuzz, ivl + fuzz
}

// fuzzedInterval picks a value in the fuzz band for this card.
func fuzzedInterval(c *domain.Card, ivl int) int {
	lo, hi := fuzzRange(ivl)
	if lo >= hi {
		return lo
	}
	rng := rand.New(rand.NewSource(c.ID ^ c.Due))
	return lo + rng.Intn(hi-lo+1)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
