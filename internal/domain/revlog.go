package domain

import "fmt"

// RevlogKind classifies a review event. The numeric values are part of the
// persisted row layout.
type RevlogKind int

const (
	RevlogLearn       RevlogKind = 0
	RevlogReview      RevlogKind = 1
	RevlogRelearn     RevlogKind = 2
	RevlogEarlyReview RevlogKind = 3 // answered ahead of schedule in a filtered deck
)

var revlogKindNames = [...]string{
	RevlogLearn:       "Learn",
	RevlogReview:      "Review",
	RevlogRelearn:     "Relearn",
	RevlogEarlyReview: "EarlyReview",
}

// String returns the name of the event kind.
func (k RevlogKind) String() string {
	if k >= RevlogLearn && k <= RevlogEarlyReview {
		return revlogKindNames[k]
	}
	return fmt.Sprintf("RevlogKind(%d)", int(k))
}

// RevlogEntry is one appended answer record. ID is the answer timestamp in
// milliseconds, which also keys the table. Interval conventions match Card:
// positive days, negative seconds. Entries are never mutated after append.
type RevlogEntry struct {
	ID           int64 // unix millis of the answer
	CardID       int64
	USN          int
	Grade        Grade
	Interval     int
	LastInterval int
	Factor       int
	TimeTakenMs  int
	Kind         RevlogKind
}
