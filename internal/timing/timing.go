// Package timing maps wall-clock time onto integer scheduler days.
package timing

import (
	"math"
	"time"
)

// Clock is a snapshot of scheduler time: the current day index since the
// collection was created, the instant of the next day rollover, and the
// wall-clock moment the snapshot was taken. Components receive a Clock value
// instead of reading shared mutable day state.
type Clock struct {
	Today     int
	DayCutoff time.Time
	Now       time.Time
}

// Compute builds a Clock for the given collection creation time and rollover
// hour. A scheduler day runs from rolloverHour to rolloverHour local time, so
// reviews done at 2 AM still belong to the previous day with the default
// 4 AM rollover.
func Compute(created time.Time, rolloverHour int, now time.Time) Clock {
	return Clock{
		Today:     daysBetween(created, now, rolloverHour),
		DayCutoff: nextCutoff(now, rolloverHour),
		Now:       now,
	}
}

// daysBetween counts scheduler-day boundaries crossed between a and b.
func daysBetween(a, b time.Time, rolloverHour int) int {
	shift := time.Duration(rolloverHour) * time.Hour
	sa := startOfDay(a.Add(-shift))
	sb := startOfDay(b.Add(-shift))
	// Rounding absorbs the one-hour wobble of DST transitions.
	return int(math.Round(sb.Sub(sa).Hours() / 24))
}

// nextCutoff returns the first rollover instant strictly after now.
func nextCutoff(now time.Time, rolloverHour int) time.Time {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), rolloverHour, 0, 0, 0, now.Location())
	if !cutoff.After(now) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}
	return cutoff
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
