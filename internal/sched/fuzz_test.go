package sched

import (
	"testing"
	"time"

	"github.com/conorfennell/decksched/internal/domain"
)

func TestFuzzRange(t *testing.T) {
	cases := []struct {
		ivl, lo, hi int
	}{
		{1, 1, 1},
		{2, 2, 3},
		{4, 3, 5},
		{6, 5, 7},
		{10, 8, 12},
		{20, 17, 23},
		{100, 95, 105},
		{365, 347, 383},
	}
	for _, c := range cases {
		lo, hi := fuzzRange(c.ivl)
		if lo != c.lo || hi != c.hi {
			t.Errorf("fuzzRange(%d) = (%d, %d), want (%d, %d)", c.ivl, lo, hi, c.lo, c.hi)
		}
	}
}

func TestFuzzedIntervalIsReproducible(t *testing.T) {
	c := &domain.Card{ID: 12345, Due: 678}
	first := fuzzedInterval(c, 30)
	for i := 0; i < 5; i++ {
		if got := fuzzedInterval(c, 30); got != first {
			t.Fatalf("fuzz not stable: %d then %d", first, got)
		}
	}
	lo, hi := fuzzRange(30)
	if first < lo || first > hi {
		t.Fatalf("fuzzedInterval = %d, want in [%d, %d]", first, lo, hi)
	}
}

func TestDelaySeconds(t *testing.T) {
	delays := []float64{1, 10}
	if got := delaySeconds(delays, 2002); got != 60 {
		t.Fatalf("first step = %ds, want 60", got)
	}
	if got := delaySeconds(delays, 1001); got != 600 {
		t.Fatalf("second step = %ds, want 600", got)
	}
	// Out-of-range packing falls back to the first step.
	if got := delaySeconds(delays, 1005); got != 60 {
		t.Fatalf("fallback = %ds, want 60", got)
	}
	if got := delaySeconds(nil, 1001); got != 60 {
		t.Fatalf("empty steps = %ds, want one minute", got)
	}
}

func TestLeftTodayStopsAtCutoff(t *testing.T) {
	f := newFixture(t)
	f.reset()
	delays := []float64{1, 10}

	// Noon leaves room for both steps.
	if got := f.sched.leftToday(delays, 2, f.now); got != 2 {
		t.Fatalf("leftToday at noon = %d, want 2", got)
	}
	// Five minutes before the cutoff only the one-minute step fits, but at
	// least one step always counts.
	nearCutoff := f.sched.clock.DayCutoff.Add(-5 * time.Minute)
	if got := f.sched.leftToday(delays, 2, nearCutoff); got != 1 {
		t.Fatalf("leftToday near cutoff = %d, want 1", got)
	}
}
