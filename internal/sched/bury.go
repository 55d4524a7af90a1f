package sched

import (
	"github.com/conorfennell/decksched/internal/domain"
)

// burySiblings hides the other cards of the shown card's note until the next
// day rollover, per the deck configuration's bury toggles. New siblings and
// due review siblings are affected; learning cards are never buried.
func (s *Scheduler) burySiblings(card *domain.Card) error {
	conf, err := s.decks.ConfFor(card.HomeDeckID())
	if err != nil {
		return err
	}
	if !conf.New.Bury && !conf.Review.Bury {
		return nil
	}
	siblings, err := s.store.SiblingsOf(card.NoteID, card.ID)
	if err != nil {
		return err
	}

	now := s.opts.Now().Unix()
	var buried []*domain.Card
	drop := map[int64]bool{}
	for _, sib := range siblings {
		switch sib.Queue {
		case domain.QueueNew:
			if !conf.New.Bury {
				continue
			}
		case domain.QueueReview:
			if !conf.Review.Bury || sib.Due > int64(s.clock.Today) {
				continue
			}
		default:
			continue
		}
		sib.Queue = domain.QueueBuriedBySibling
		sib.Mtime = now
		sib.USN = s.usn
		buried = append(buried, sib)
		drop[sib.ID] = true
	}
	if len(buried) == 0 {
		return nil
	}
	s.removeFromQueues(drop)
	return s.store.UpdateCardsSched(buried)
}

// Suspend takes cards out of circulation until explicitly unsuspended. Cards
// parked in a filtered deck are sent home first.
func (s *Scheduler) Suspend(ids ...int64) error {
	cards, err := s.store.GetCards(ids)
	if err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	drop := map[int64]bool{}
	for _, c := range cards {
		if c.InFiltered() {
			restored := c.OriginalDue
			if restored == 0 {
				restored = c.Due
			}
			s.policy.restoreAfterFiltered(c, restored)
			s.leaveFiltered(c)
		}
		c.Queue = domain.QueueSuspended
		c.Mtime = now
		c.USN = s.usn
		drop[c.ID] = true
	}
	s.removeFromQueues(drop)
	s.lastUndo = nil
	return s.store.UpdateCardsSched(cards)
}

// Unsuspend returns suspended cards to the queue their kind implies.
func (s *Scheduler) Unsuspend(ids ...int64) error {
	cards, err := s.store.GetCards(ids)
	if err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	var changed []*domain.Card
	for _, c := range cards {
		if c.Queue != domain.QueueSuspended {
			continue
		}
		c.Queue = restoredQueue(c)
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

// Bury hides cards until the next day rollover or an explicit unbury.
func (s *Scheduler) Bury(ids ...int64) error {
	cards, err := s.store.GetCards(ids)
	if err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	drop := map[int64]bool{}
	for _, c := range cards {
		c.Queue = domain.QueueBuriedByUser
		c.Mtime = now
		c.USN = s.usn
		drop[c.ID] = true
	}
	s.removeFromQueues(drop)
	s.lastUndo = nil
	return s.store.UpdateCardsSched(cards)
}

// UnburyAll restores every buried card, both user-buried and
// sibling-buried. It runs automatically at day rollover.
func (s *Scheduler) UnburyAll() error {
	cards, err := s.store.CardsInQueues(domain.QueueBuriedBySibling, domain.QueueBuriedByUser)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return nil
	}
	now := s.opts.Now().Unix()
	for _, c := range cards {
		c.Queue = restoredQueue(c)
		c.Mtime = now
		c.USN = s.usn
	}
	return s.store.UpdateCardsSched(cards)
}
