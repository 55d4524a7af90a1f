package domain

import (
	"fmt"
	"time"
)

// CardKind is the learning stage of a card. It changes only when a grade
// moves the card through the lifecycle; suspension and burying never touch it.
type CardKind int

const (
	KindNew CardKind = iota
	KindLearning
	KindReview
	KindRelearning
)

var cardKindNames = [...]string{
	KindNew:        "New",
	KindLearning:   "Learning",
	KindReview:     "Review",
	KindRelearning: "Relearning",
}

// String returns the name of the kind ("New", "Learning", ...).
func (k CardKind) String() string {
	if k.IsValid() {
		return cardKindNames[k]
	}
	return fmt.Sprintf("CardKind(%d)", int(k))
}

// IsValid reports whether k is one of the four lifecycle stages.
func (k CardKind) IsValid() bool {
	return k >= KindNew && k <= KindRelearning
}

// QueueKind is the queue a card currently sits in. It usually mirrors the
// kind, but diverges for suspended, buried and filtered-preview cards.
// The numeric values are part of the persisted row layout and must not move.
type QueueKind int

const (
	QueueNew         QueueKind = 0
	QueueLearning    QueueKind = 1 // sub-day steps, due is a unix timestamp
	QueueReview      QueueKind = 2
	QueueDayLearning QueueKind = 3 // learning steps of a day or more, due is a day offset
	QueuePreview     QueueKind = 4 // filtered deck with rescheduling disabled

	QueueSuspended       QueueKind = -1
	QueueBuriedBySibling QueueKind = -2
	QueueBuriedByUser    QueueKind = -3
)

var queueKindNames = map[QueueKind]string{
	QueueNew:             "New",
	QueueLearning:        "Learning",
	QueueReview:          "Review",
	QueueDayLearning:     "DayLearning",
	QueuePreview:         "Preview",
	QueueSuspended:       "Suspended",
	QueueBuriedBySibling: "BuriedBySibling",
	QueueBuriedByUser:    "BuriedByUser",
}

// String returns the name of the queue.
func (q QueueKind) String() string {
	if name, ok := queueKindNames[q]; ok {
		return name
	}
	return fmt.Sprintf("QueueKind(%d)", int(q))
}

// IsValid reports whether q is a known queue value.
func (q QueueKind) IsValid() bool {
	_, ok := queueKindNames[q]
	return ok
}

// Buried reports whether the queue is one of the two buried states.
func (q QueueKind) Buried() bool {
	return q == QueueBuriedBySibling || q == QueueBuriedByUser
}

// Grade is the user's answer to a card, Again through Easy.
type Grade int

const (
	Again Grade = 1
	Hard  Grade = 2
	Good  Grade = 3
	Easy  Grade = 4
)

var gradeNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

// String returns the name of the grade.
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// IsValid reports whether g is in the Again..Easy range.
func (g Grade) IsValid() bool {
	return g >= Again && g <= Easy
}

// Card is one generated presentation unit of a note/template pair, plus its
// full scheduling state. Field order matches the persisted row layout:
// (id, nid, did, ord, mtime, usn, kind, queue, due, ivl, factor, reps,
// lapses, left, odue, odid, flags, data).
//
// Due is interpreted per queue: an ordering key for New, a unix timestamp for
// Learning, a day offset from collection creation for Review and DayLearning.
// Interval is signed: positive values are days, negative values are seconds.
// Left packs two counters: left/1000 is the steps reachable before the next
// day cutoff, left%1000 the total steps remaining.
type Card struct {
	ID             int64
	NoteID         int64
	DeckID         int64
	Ord            int
	Mtime          int64
	USN            int
	Kind           CardKind
	Queue          QueueKind
	Due            int64
	Interval       int
	Factor         int // ease factor, permille
	Reps           int
	Lapses         int
	Left           int
	OriginalDue    int64 // non-zero only while parked in a filtered deck
	OriginalDeckID int64
	Flags          int
	Data           string

	timerStarted time.Time
}

// InFiltered reports whether the card is parked in a filtered deck.
func (c *Card) InFiltered() bool {
	return c.OriginalDeckID != 0
}

// HomeDeckID returns the deck the card belongs to outside any filtered deck.
func (c *Card) HomeDeckID() int64 {
	if c.OriginalDeckID != 0 {
		return c.OriginalDeckID
	}
	return c.DeckID
}

// StartTimer records the moment the card was shown to the user.
func (c *Card) StartTimer(now time.Time) {
	c.timerStarted = now
}

// TimeTaken returns the answer time in milliseconds, capped at maxSecs.
func (c *Card) TimeTaken(now time.Time, maxSecs int) int {
	if c.timerStarted.IsZero() {
		return 0
	}
	taken := int(now.Sub(c.timerStarted).Milliseconds())
	if limit := maxSecs * 1000; taken > limit {
		taken = limit
	}
	if taken < 0 {
		taken = 0
	}
	return taken
}

// UserFlag returns the low three bits of Flags used for manual card marking.
func (c *Card) UserFlag() int {
	return c.Flags & 0b111
}

// SetUserFlag stores flag in the low three bits of Flags.
func (c *Card) SetUserFlag(flag int) error {
	if flag < 0 || flag > 7 {
		return fmt.Errorf("domain: user flag %d out of range", flag)
	}
	c.Flags = (c.Flags &^ 0b111) | flag
	return nil
}

// Clone returns a copy of the card suitable for snapshotting.
func (c *Card) Clone() *Card {
	out := *c
	return &out
}
