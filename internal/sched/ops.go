package sched

import (
	"math/rand"
	"sort"

	"github.com/conorfennell/decksched/internal/domain"
)

// Reposition rewrites the due ordering of new cards: the first card gets
// start, each following card start plus a multiple of step. With shuffle the
// order is randomized (deterministically, from the first card's id); with
// shift, existing new cards at or past start are pushed out of the way.
// Cards that are not New-kind are skipped.
func (s *Scheduler) Reposition(ids []int64, start, step int64, shuffle, shift bool) error {
	if step < 1 {
		step = 1
	}
	cards, err := s.store.GetCards(ids)
	if err != nil {
		return err
	}
	var targets []*domain.Card
	for _, c := range cards {
		if c.Kind == domain.KindNew {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Due < targets[j].Due })
	if shuffle {
		rng := rand.New(rand.NewSource(targets[0].ID))
		rng.Shuffle(len(targets), func(i, j int) {
			targets[i], targets[j] = targets[j], targets[i]
		})
	}

	now := s.opts.Now().Unix()
	if shift {
		moved := make([]int64, 0, len(targets))
		for _, c := range targets {
			moved = append(moved, c.ID)
		}
		by := int64(len(targets)) * step
		if err := s.store.ShiftNewDue(start, by, moved, now, s.usn); err != nil {
			return err
		}
	}

	due := start
	for _, c := range targets {
		target := due
		if c.InFiltered() {
			// Position applies to the home ordering; display order in
			// the filtered deck is untouched.
			c.OriginalDue = target
		} else {
			c.Due = target
		}
		due += step
		c.Mtime = now
		c.USN = s.usn
	}
	s.haveQueues = false
	s.lastUndo = nil
	return s.store.UpdateCardsSched(targets)
}

// Reschedule places review cards at a uniformly random interval between
// minDays and maxDays from today. Cards that are not Review-kind are
// skipped; parked cards are sent home first.
func (s *Scheduler) Reschedule(ids []int64, minDays, maxDays int) error {
	if maxDays < minDays {
		maxDays = minDays
	}
	cards, err := s.store.GetCards(ids)
	if err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	var changed []*domain.Card
	for _, c := range cards {
		if c.Kind != domain.KindReview {
			continue
		}
		if c.InFiltered() {
			s.leaveFiltered(c)
		}
		rng := rand.New(rand.NewSource(c.ID ^ int64(s.clock.Today)))
		ivl := minDays + rng.Intn(maxDays-minDays+1)
		if ivl < 1 {
			ivl = 1
		}
		c.Interval = ivl
		c.Due = int64(s.clock.Today + ivl)
		c.Queue = domain.QueueReview
		c.Left = 0
		c.Mtime = now
		c.USN = s.usn
		changed = append(changed, c)
	}
	if len(changed) == 0 {
		return nil
	}
	s.haveQueues = false
	s.lastUndo = nil
	return s.store.UpdateCardsSched(changed)
}

// RemoveDeck deletes a deck. A filtered deck is emptied first so its parked
// cards return home; a standard deck takes its cards with it, leaving notes
// and the revlog behind.
func (s *Scheduler) RemoveDeck(deckID int64) error {
	if deckID == 1 {
		return ErrDefaultDeck
	}
	d, err := s.decks.Get(deckID)
	if err != nil {
		return err
	}
	if d.Dyn {
		if err := s.EmptyFilteredDeck(deckID); err != nil {
			return err
		}
	} else {
		children, err := s.decks.Children(deckID)
		if err != nil {
			return err
		}
		targets := append([]*domain.Deck{d}, children...)
		for _, t := range targets {
			cards, err := s.store.CardsInDeck(t.ID)
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(cards))
			for _, c := range cards {
				ids = append(ids, c.ID)
			}
			if err := s.store.DeleteCards(ids); err != nil {
				return err
			}
		}
		for _, t := range targets[1:] {
			if err := s.decks.Delete(t.ID); err != nil {
				return err
			}
		}
	}
	if err := s.decks.Delete(deckID); err != nil {
		return err
	}
	s.haveQueues = false
	s.lastUndo = nil
	return nil
}

// Forget resets cards to New: scheduling history is kept in the revlog but
// the cards restart from scratch, appended after the last new card.
func (s *Scheduler) Forget(ids []int64) error {
	cards, err := s.store.GetCards(ids)
	if err != nil {
		return err
	}
	maxDue, err := s.store.MaxNewDue()
	if err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	due := maxDue + 1
	for _, c := range cards {
		if c.InFiltered() {
			s.leaveFiltered(c)
		}
		c.Kind = domain.KindNew
		c.Queue = domain.QueueNew
		c.Interval = 0
		c.Factor = domain.StartingFactor
		c.Left = 0
		c.Due = due
		due++
		c.Mtime = now
		c.USN = s.usn
	}
	s.haveQueues = false
	s.lastUndo = nil
	return s.store.UpdateCardsSched(cards)
}
