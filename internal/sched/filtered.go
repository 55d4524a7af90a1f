package sched

import (
	"fmt"

	"github.com/conorfennell/decksched/internal/deck"
	"github.com/conorfennell/decksched/internal/domain"
)

// RebuildFiltered empties a filtered deck and regathers it from its terms.
// Each term names a home deck; cards are pulled from that deck and its
// subdecks in the term's order, up to the term's limit, and parked in the
// filtered deck. The number of cards gathered is returned.
func (s *Scheduler) RebuildFiltered(deckID int64) (int, error) {
	d, err := s.decks.Get(deckID)
	if err != nil {
		return 0, err
	}
	if !d.Dyn {
		return 0, fmt.Errorf("%w: %s", ErrNotFiltered, d.Name)
	}
	if err := s.EmptyFilteredDeck(deckID); err != nil {
		return 0, err
	}

	now := s.opts.Now().Unix()
	// Positions start deep in the negative range so gathered cards sort
	// ahead of everything with a natural due.
	due := int64(-100_000)
	total := 0
	for _, term := range d.Terms {
		sources, err := s.termDeckIDs(term.Search)
		if err != nil {
			return 0, err
		}
		limit := term.Limit
		if limit <= 0 || limit > reportLimit {
			limit = reportLimit
		}
		ids, err := s.store.GatherFiltered(sources, term.Order, limit)
		if err != nil {
			return 0, err
		}
		cards, err := s.store.GetCards(ids)
		if err != nil {
			return 0, err
		}
		for _, c := range cards {
			// A card already parked elsewhere keeps its original home;
			// only the filtered placement moves.
			if !c.InFiltered() {
				c.OriginalDeckID = c.DeckID
				c.OriginalDue = c.Due
			}
			c.DeckID = deckID
			c.Due = due
			due++
			if !d.Resched {
				c.Queue = domain.QueuePreview
			}
			c.Mtime = now
			c.USN = s.usn
		}
		if err := s.store.UpdateCardsSched(cards); err != nil {
			return 0, err
		}
		total += len(cards)
	}

	s.haveQueues = false
	s.lastUndo = nil
	return total, nil
}

// termDeckIDs resolves a term's search to the named deck and its subdecks.
func (s *Scheduler) termDeckIDs(search string) ([]int64, error) {
	root, ok := s.decks.ByName(search)
	if !ok {
		return nil, fmt.Errorf("%w: filtered term %q", deck.ErrNoDeck, search)
	}
	ids := []int64{root.ID}
	children, err := s.decks.Children(root.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if !c.Dyn {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// EmptyFilteredDeck sends every card in a filtered deck back to its home
// deck, restoring the due and queue it was parked with. The deck itself and
// its terms survive for the next rebuild.
func (s *Scheduler) EmptyFilteredDeck(deckID int64) error {
	d, err := s.decks.Get(deckID)
	if err != nil {
		return err
	}
	if !d.Dyn {
		return fmt.Errorf("%w: %s", ErrNotFiltered, d.Name)
	}
	cards, err := s.store.CardsInDeck(deckID)
	if err != nil {
		return err
	}
	now := s.opts.Now().Unix()
	var restored []*domain.Card
	for _, c := range cards {
		if !c.InFiltered() {
			continue
		}
		due := c.OriginalDue
		if due == 0 {
			// Answered while parked; the card's own due is current.
			due = c.Due
		}
		c.DeckID = c.OriginalDeckID
		s.policy.restoreAfterFiltered(c, due)
		c.OriginalDue = 0
		c.OriginalDeckID = 0
		c.Mtime = now
		c.USN = s.usn
		restored = append(restored, c)
	}
	if len(restored) == 0 {
		return nil
	}
	s.haveQueues = false
	s.lastUndo = nil
	return s.store.UpdateCardsSched(restored)
}
