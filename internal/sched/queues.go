package sched

import (
	"slices"

	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/storage"
)

// In-memory queue building. Each pool keeps a bounded stack of card ids and a
// head-first list of active decks still to drain; a fill pass pulls at most
// min(queueLimit, deck's remaining allowance) rows from the head deck and
// advances to the next deck when it yields nothing.

func (s *Scheduler) resetNew() error {
	count, err := s.walkingCount(s.deckNewLimitSingle, func(deckID int64, lim int) (int, error) {
		return s.store.CountNewInDeck(deckID, lim)
	})
	if err != nil {
		return err
	}
	s.newCount = count
	s.newDecks = slices.Clone(s.decks.Active())
	s.newQueue = nil
	s.updateNewCardModulus()
	return nil
}

func (s *Scheduler) resetReview() error {
	count, err := s.walkingCount(s.deckRevLimitSingle, func(deckID int64, lim int) (int, error) {
		return s.store.CountReviewInDeck(deckID, s.clock.Today, lim)
	})
	if err != nil {
		return err
	}
	s.revCount = count
	s.revDecks = slices.Clone(s.decks.Active())
	s.revQueue = nil
	return nil
}

func (s *Scheduler) resetLearning() error {
	active := s.decks.Active()
	count, err := s.store.CountLearning(active, s.clock.DayCutoff.Unix(), s.clock.Today)
	if err != nil {
		return err
	}
	s.lrnCount = count

	// Sub-day learning cards are few; load them across all active decks in
	// one pass, ordered soonest first.
	queue, err := s.store.LearningDueCards(active, s.clock.DayCutoff.Unix(), reportLimit)
	if err != nil {
		return err
	}
	s.lrnQueue = queue
	s.lrnDayQueue = nil
	s.lrnDayDecks = slices.Clone(active)
	return nil
}

// updateNewCardModulus recomputes how often a new card interrupts the
// learning/review stream. A zero modulus disables interleaving.
func (s *Scheduler) updateNewCardModulus() {
	s.newCardModulus = 0
	if s.opts.NewSpread != domain.NewCardsDistribute {
		return
	}
	if s.newCount == 0 {
		return
	}
	s.newCardModulus = (s.newCount + s.revCount) / s.newCount
	// If reviews remain, space new cards at least every other pop.
	if s.revCount > 0 && s.newCardModulus < 2 {
		s.newCardModulus = 2
	}
}

// timeForNewCard reports whether the next pop should offer a new card.
func (s *Scheduler) timeForNewCard() bool {
	if s.newCount == 0 {
		return false
	}
	switch s.opts.NewSpread {
	case domain.NewCardsLast:
		return false
	case domain.NewCardsFirst:
		return true
	default:
		return s.newCardModulus > 0 && s.reps > 0 && s.reps%s.newCardModulus == 0
	}
}

// nextCardID picks among the non-empty queues. Overdue learning cards win
// outright; a new card is offered on interleave ticks; a learning card due
// within the look-ahead window is preferred over a review card.
func (s *Scheduler) nextCardID() (int64, error) {
	if id := s.popLearning(0); id != 0 {
		return id, nil
	}

	if s.timeForNewCard() {
		if id, err := s.popNew(); err != nil || id != 0 {
			return id, err
		}
	}

	if s.opts.DayLearnFirst {
		if id, err := s.popDayLearning(); err != nil || id != 0 {
			return id, err
		}
	}

	if id := s.popLearning(int64(s.opts.LearnAheadSecs)); id != 0 {
		return id, nil
	}

	if id, err := s.popReview(); err != nil || id != 0 {
		return id, err
	}

	if !s.opts.DayLearnFirst {
		if id, err := s.popDayLearning(); err != nil || id != 0 {
			return id, err
		}
	}

	return s.popNew()
}

// fillNew tops up the new queue. When the aggregate count is positive but
// every deck comes up empty (cards buried or suspended since the last
// reset), the counts are recomputed once and the fill retried exactly once.
func (s *Scheduler) fillNew() (bool, error) {
	return s.fillNewInner(true)
}

func (s *Scheduler) fillNewInner(mayRetry bool) (bool, error) {
	if len(s.newQueue) > 0 {
		return true, nil
	}
	if s.newCount == 0 {
		return false, nil
	}
	for len(s.newDecks) > 0 {
		if s.interrupted() {
			return false, nil
		}
		deckID := s.newDecks[0]
		lim, err := s.deckNewLimit(deckID)
		if err != nil {
			return false, err
		}
		if lim > queueLimit {
			lim = queueLimit
		}
		if lim > 0 {
			ids, err := s.store.NewCardIDs(deckID, lim)
			if err != nil {
				return false, err
			}
			if len(ids) > 0 {
				slices.Reverse(ids)
				s.newQueue = ids
				return true, nil
			}
		}
		// Nothing left in this deck; move to the next.
		s.newDecks = s.newDecks[1:]
	}
	if s.newCount > 0 && mayRetry {
		if err := s.resetNew(); err != nil {
			return false, err
		}
		return s.fillNewInner(false)
	}
	return false, nil
}

func (s *Scheduler) popNew() (int64, error) {
	ok, err := s.fillNew()
	if err != nil || !ok {
		return 0, err
	}
	id := s.newQueue[len(s.newQueue)-1]
	s.newQueue = s.newQueue[:len(s.newQueue)-1]
	s.newCount--
	return id, nil
}

// fillReview mirrors fillNew for the review pool.
func (s *Scheduler) fillReview() (bool, error) {
	return s.fillReviewInner(true)
}

func (s *Scheduler) fillReviewInner(mayRetry bool) (bool, error) {
	if len(s.revQueue) > 0 {
		return true, nil
	}
	if s.revCount == 0 {
		return false, nil
	}
	for len(s.revDecks) > 0 {
		if s.interrupted() {
			return false, nil
		}
		deckID := s.revDecks[0]
		lim, err := s.deckRevLimit(deckID)
		if err != nil {
			return false, err
		}
		if lim > queueLimit {
			lim = queueLimit
		}
		if lim > 0 {
			ids, err := s.store.ReviewCardIDs(deckID, s.clock.Today, lim)
			if err != nil {
				return false, err
			}
			if len(ids) > 0 {
				slices.Reverse(ids)
				s.revQueue = ids
				return true, nil
			}
		}
		s.revDecks = s.revDecks[1:]
	}
	if s.revCount > 0 && mayRetry {
		if err := s.resetReview(); err != nil {
			return false, err
		}
		return s.fillReviewInner(false)
	}
	return false, nil
}

func (s *Scheduler) popReview() (int64, error) {
	ok, err := s.fillReview()
	if err != nil || !ok {
		return 0, err
	}
	id := s.revQueue[len(s.revQueue)-1]
	s.revQueue = s.revQueue[:len(s.revQueue)-1]
	s.revCount--
	return id, nil
}

// popLearning pops the head of the sub-day learning queue if it is due
// within lookAheadSecs of now.
func (s *Scheduler) popLearning(lookAheadSecs int64) int64 {
	if len(s.lrnQueue) == 0 {
		return 0
	}
	cutoff := s.opts.Now().Unix() + lookAheadSecs
	if s.lrnQueue[0].Due >= cutoff {
		return 0
	}
	id := s.lrnQueue[0].ID
	s.lrnQueue = s.lrnQueue[1:]
	if s.lrnCount > 0 {
		s.lrnCount--
	}
	return id
}

// requeueLearning puts a re-stepped card back into the sub-day queue when
// its next step still falls before the cutoff, keeping the queue sorted.
func (s *Scheduler) requeueLearning(id, due int64) {
	if due >= s.clock.DayCutoff.Unix() {
		return
	}
	s.lrnCount++
	idx, _ := slices.BinarySearchFunc(s.lrnQueue, due, func(e storage.DueCard, target int64) int {
		switch {
		case e.Due < target:
			return -1
		case e.Due > target:
			return 1
		default:
			return 0
		}
	})
	s.lrnQueue = slices.Insert(s.lrnQueue, idx, storage.DueCard{ID: id, Due: due})
}

func (s *Scheduler) fillDayLearning() (bool, error) {
	if len(s.lrnDayQueue) > 0 {
		return true, nil
	}
	for len(s.lrnDayDecks) > 0 {
		if s.interrupted() {
			return false, nil
		}
		deckID := s.lrnDayDecks[0]
		ids, err := s.store.DayLearningCardIDs(deckID, s.clock.Today, queueLimit)
		if err != nil {
			return false, err
		}
		if len(ids) > 0 {
			slices.Reverse(ids)
			s.lrnDayQueue = ids
			return true, nil
		}
		s.lrnDayDecks = s.lrnDayDecks[1:]
	}
	return false, nil
}

func (s *Scheduler) popDayLearning() (int64, error) {
	ok, err := s.fillDayLearning()
	if err != nil || !ok {
		return 0, err
	}
	id := s.lrnDayQueue[len(s.lrnDayQueue)-1]
	s.lrnDayQueue = s.lrnDayQueue[:len(s.lrnDayQueue)-1]
	if s.lrnCount > 0 {
		s.lrnCount--
	}
	return id, nil
}

func (s *Scheduler) interrupted() bool {
	return s.opts.FillInterrupt != nil && s.opts.FillInterrupt()
}
