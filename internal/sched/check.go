package sched

import (
	"fmt"
	"log/slog"
)

// IntegrityReport summarizes what an integrity pass found and fixed.
type IntegrityReport struct {
	StaleOriginalDue int64
	OrphanedFiltered int64
	NewOutOfRange    int
	MissingDeck      int
}

// Repaired reports whether the pass changed anything.
func (r IntegrityReport) Repaired() bool {
	return r.StaleOriginalDue > 0 || r.OrphanedFiltered > 0 ||
		r.NewOutOfRange > 0 || r.MissingDeck > 0
}

// CheckIntegrity normalizes scheduling state the rest of the package assumes:
// no restore values outside filtered decks, no cards pointing at missing
// decks, new-card positions inside the ordering range. Problems are repaired
// in place; ErrIntegrity is returned only when a repair itself cannot
// establish the invariant.
func (s *Scheduler) CheckIntegrity() (*IntegrityReport, error) {
	now := s.opts.Now().Unix()
	rep := &IntegrityReport{}

	n, err := s.store.RepairStaleOriginalDue(now, s.usn)
	if err != nil {
		return nil, err
	}
	rep.StaleOriginalDue = n

	n, err = s.store.RepairOrphanedFiltered(s.decks.DynIDs(), now, s.usn)
	if err != nil {
		return nil, err
	}
	rep.OrphanedFiltered = n

	orphans, err := s.store.CardsWithMissingDeck()
	if err != nil {
		return nil, err
	}
	if len(orphans) > 0 {
		if _, err := s.decks.Get(1); err != nil {
			return nil, fmt.Errorf("%w: default deck missing, cannot rehome %d cards", ErrIntegrity, len(orphans))
		}
		if err := s.store.MoveCardsToDeck(orphans, 1, now, s.usn); err != nil {
			return nil, err
		}
		rep.MissingDeck = len(orphans)
	}

	highNew, err := s.store.NewCardsOutOfRange()
	if err != nil {
		return nil, err
	}
	if len(highNew) > 0 {
		cards, err := s.store.GetCards(highNew)
		if err != nil {
			return nil, err
		}
		for _, c := range cards {
			c.Due = c.Due % 1_000_000
			c.Mtime = now
			c.USN = s.usn
		}
		if err := s.store.UpdateCardsSched(cards); err != nil {
			return nil, err
		}
		rep.NewOutOfRange = len(highNew)
	}

	// Every deck must resolve its config group or the limit walk fails.
	for _, d := range s.decks.All() {
		if d.Dyn {
			continue
		}
		if _, err := s.decks.ConfFor(d.ID); err != nil {
			return rep, fmt.Errorf("%w: deck %q: %v", ErrIntegrity, d.Name, err)
		}
	}

	if rep.Repaired() {
		slog.Info("integrity pass repaired cards",
			"stale_odue", rep.StaleOriginalDue,
			"orphaned_filtered", rep.OrphanedFiltered,
			"new_out_of_range", rep.NewOutOfRange,
			"missing_deck", rep.MissingDeck)
		s.haveQueues = false
		s.lastUndo = nil
	}
	return rep, nil
}
