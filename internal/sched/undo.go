package sched

import (
	"github.com/conorfennell/decksched/internal/domain"
)

// undoStep snapshots everything one answer changed: the card before grading,
// the revlog row it appended and the deck counters it bumped.
type undoStep struct {
	card     *domain.Card
	revlogID int64
	decks    []*domain.Deck
}

// snapshotCounters clones the card's deck and its ancestors before their
// daily counters are bumped, so an undo can write the old values back.
func (s *Scheduler) snapshotCounters(deckID int64) ([]*domain.Deck, error) {
	d, err := s.decks.Get(deckID)
	if err != nil {
		return nil, err
	}
	parents, err := s.decks.Parents(deckID)
	if err != nil {
		return nil, err
	}
	snap := make([]*domain.Deck, 0, len(parents)+1)
	for _, t := range append([]*domain.Deck{d}, parents...) {
		clone := *t
		snap = append(snap, &clone)
	}
	return snap, nil
}

// Undo reverts the most recent answer: the card snapshot is written back,
// the revlog row is deleted and the deck counters roll back. Only one level
// of undo is kept, and any other mutation invalidates it.
func (s *Scheduler) Undo() (*domain.Card, error) {
	if s.lastUndo == nil {
		return nil, ErrNothingToUndo
	}
	step := s.lastUndo
	s.lastUndo = nil

	if err := s.store.CommitUndo(step.card, step.revlogID, step.decks); err != nil {
		return nil, err
	}
	// The in-memory deck tree still carries the bumped counters; put the
	// snapshots back.
	for _, snap := range step.decks {
		live, err := s.decks.Get(snap.ID)
		if err != nil {
			return nil, err
		}
		*live = *snap
	}
	s.haveQueues = false
	return step.card.Clone(), nil
}

// CanUndo reports whether an answer is available to revert.
func (s *Scheduler) CanUndo() bool {
	return s.lastUndo != nil
}
