package sched

import (
	"github.com/conorfennell/decksched/internal/domain"
)

// Deck hierarchy limit aggregation. A deck's effective allowance for today is
// its own remaining per-day limit clamped by every ancestor's remaining
// allowance; once a deck contributes cards, that amount is deducted from the
// memoised ancestor budgets before any sibling deck is considered, so budget
// consumed lower in the tree is never granted twice.

type limitFn func(d *domain.Deck) (int, error)
type countFn func(deckID int64, limit int) (int, error)

// walkingCount totals the cards the active decks may still contribute today
// for one pool (new or review).
func (s *Scheduler) walkingCount(limit limitFn, count countFn) (int, error) {
	total := 0
	remaining := map[int64]int{} // memoised per-ancestor allowance

	for _, deckID := range s.decks.Active() {
		d, err := s.decks.Get(deckID)
		if err != nil {
			return 0, err
		}
		lim, err := limit(d)
		if err != nil {
			return 0, err
		}
		if lim == 0 {
			// A spent or zero limit skips this deck's own cards, but the
			// deck still participates as an ancestor of its children.
			continue
		}

		ancestors, err := s.decks.Parents(deckID)
		if err != nil {
			return 0, err
		}
		for _, ancestor := range ancestors {
			if _, ok := remaining[ancestor.ID]; !ok {
				alim, err := limit(ancestor)
				if err != nil {
					return 0, err
				}
				remaining[ancestor.ID] = alim
			}
			if remaining[ancestor.ID] < lim {
				lim = remaining[ancestor.ID]
			}
		}

		cnt, err := count(deckID, lim)
		if err != nil {
			return 0, err
		}
		for _, ancestor := range ancestors {
			remaining[ancestor.ID] -= cnt
		}
		remaining[deckID] = lim - cnt
		total += cnt
	}
	return total, nil
}

// deckNewLimitSingle is a deck's own remaining new allowance, ignoring
// ancestors. Filtered decks sit outside the per-day economy and report an
// effectively unlimited allowance.
func (s *Scheduler) deckNewLimitSingle(d *domain.Deck) (int, error) {
	if d.Dyn {
		return reportLimit, nil
	}
	conf, err := s.decks.ConfFor(d.ID)
	if err != nil {
		return 0, err
	}
	lim := conf.New.PerDay - d.NewToday.For(s.clock.Today)
	if lim < 0 {
		lim = 0
	}
	return lim, nil
}

// deckRevLimitSingle is the review twin of deckNewLimitSingle.
func (s *Scheduler) deckRevLimitSingle(d *domain.Deck) (int, error) {
	if d.Dyn {
		return reportLimit, nil
	}
	conf, err := s.decks.ConfFor(d.ID)
	if err != nil {
		return 0, err
	}
	lim := conf.Review.PerDay - d.RevToday.For(s.clock.Today)
	if lim < 0 {
		lim = 0
	}
	return lim, nil
}

// deckLimit clamps a deck's own allowance by each of its ancestors.
func (s *Scheduler) deckLimit(deckID int64, limit limitFn) (int, error) {
	d, err := s.decks.Get(deckID)
	if err != nil {
		return 0, err
	}
	lim, err := limit(d)
	if err != nil {
		return 0, err
	}
	ancestors, err := s.decks.Parents(deckID)
	if err != nil {
		return 0, err
	}
	for _, ancestor := range ancestors {
		alim, err := limit(ancestor)
		if err != nil {
			return 0, err
		}
		if alim < lim {
			lim = alim
		}
	}
	return lim, nil
}

func (s *Scheduler) deckNewLimit(deckID int64) (int, error) {
	return s.deckLimit(deckID, s.deckNewLimitSingle)
}

func (s *Scheduler) deckRevLimit(deckID int64) (int, error) {
	return s.deckLimit(deckID, s.deckRevLimitSingle)
}
