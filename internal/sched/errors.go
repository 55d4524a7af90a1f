package sched

import "errors"

// Sentinel errors for the sched package. Check with errors.Is.
var (
	// ErrInvalidSchedulerVersion means the collection names a rule set this
	// build does not implement. Callers must not proceed.
	ErrInvalidSchedulerVersion = errors.New("sched: invalid scheduler version")

	// ErrInvalidGrade means an answer outside Again..Easy was supplied.
	ErrInvalidGrade = errors.New("sched: invalid grade")

	// ErrNotFiltered means a filtered-deck operation was aimed at a
	// standard deck.
	ErrNotFiltered = errors.New("sched: deck is not a filtered deck")

	// ErrDefaultDeck means an operation tried to remove the default deck.
	ErrDefaultDeck = errors.New("sched: the default deck cannot be removed")

	// ErrNothingToUndo means no answer is available to revert.
	ErrNothingToUndo = errors.New("sched: nothing to undo")

	// ErrIntegrity means the repair pass could not re-establish the
	// scheduler's invariants and the collection needs a manual rebuild.
	ErrIntegrity = errors.New("sched: integrity check failed")
)
