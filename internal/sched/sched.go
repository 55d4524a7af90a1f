// Package sched decides which card to show next and how a card's scheduling
// state changes after each answer. It consumes the deck hierarchy service and
// the card store, and exposes the operation surface the review UI and the
// importer call.
package sched

import (
	"log/slog"
	"time"

	"github.com/conorfennell/decksched/internal/deck"
	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/storage"
	"github.com/conorfennell/decksched/internal/timing"
)

const (
	// queueLimit caps the in-memory queues so the whole due set is never
	// materialized at once.
	queueLimit = 50
	// reportLimit caps counts shown to the caller and the personal limit
	// of filtered decks, which sit outside the per-day economy.
	reportLimit = 1000
)

// Options tunes scheduler behaviour that lives outside deck configuration.
type Options struct {
	RolloverHour   int              // scheduler day boundary; default 4
	LearnAheadSecs int              // look-ahead for learning cards; default 1200
	NewSpread      domain.NewSpread // how new cards interleave with reviews
	DayLearnFirst  bool             // show day-learning cards before reviews
	Now            func() time.Time // injectable clock; default time.Now
	// FillInterrupt is polled between deck iterations during a queue fill;
	// returning true abandons the pass. A partially filled queue stays
	// consistent.
	FillInterrupt func() bool
}

// Scheduler is single-threaded: callers hold an exclusive writer lock over
// the store for the duration of one reset/get/answer cycle.
type Scheduler struct {
	store  *storage.DB
	decks  *deck.Service
	policy policy
	opts   Options

	created time.Time
	usn     int

	clock      timing.Clock
	haveQueues bool
	reps       int

	newCount int
	lrnCount int
	revCount int

	newCardModulus int

	// Queues hold card ids. newQueue and revQueue pop from the tail;
	// lrnQueue is kept sorted by due and pops from the head.
	newQueue    []int64
	lrnQueue    []storage.DueCard
	lrnDayQueue []int64
	revQueue    []int64

	// Per-pool lists of active decks still to be drained, head first.
	newDecks    []int64
	lrnDayDecks []int64
	revDecks    []int64

	lastUndo *undoStep
}

// New builds a Scheduler over the given store and deck service. The rule-set
// version is read from the collection metadata and must be supported.
func New(store *storage.DB, decks *deck.Service, opts Options) (*Scheduler, error) {
	meta, err := store.GetMeta()
	if err != nil {
		return nil, err
	}
	pol, err := policyFor(meta.SchedVersion)
	if err != nil {
		return nil, err
	}

	if opts.RolloverHour == 0 {
		opts.RolloverHour = 4
	}
	if opts.LearnAheadSecs == 0 {
		opts.LearnAheadSecs = 1200
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Scheduler{
		store:   store,
		decks:   decks,
		policy:  pol,
		opts:    opts,
		created: meta.Created,
		usn:     meta.USN,
	}
	s.clock = timing.Compute(s.created, s.opts.RolloverHour, s.opts.Now())
	return s, nil
}

// Clock returns the scheduler-time snapshot of the last reset.
func (s *Scheduler) Clock() timing.Clock {
	return s.clock
}

// Today returns the current scheduler day index.
func (s *Scheduler) Today() int {
	return s.clock.Today
}

// Reset recomputes the clock, rolls the day over if needed, rebuilds the
// aggregate counts for the active decks and empties the in-memory queues.
// It is idempotent within one scheduler day.
func (s *Scheduler) Reset() error {
	s.clock = timing.Compute(s.created, s.opts.RolloverHour, s.opts.Now())
	if err := s.rollDayIfNeeded(); err != nil {
		return err
	}
	if err := s.resetLearning(); err != nil {
		return err
	}
	if err := s.resetReview(); err != nil {
		return err
	}
	if err := s.resetNew(); err != nil {
		return err
	}
	s.haveQueues = true
	return nil
}

// rollDayIfNeeded unburies cards when the scheduler day has advanced since
// the last rollover. Per-day deck counters need no explicit reset: they are
// tagged with the day they were written on and read as zero afterwards.
func (s *Scheduler) rollDayIfNeeded() error {
	meta, err := s.store.GetMeta()
	if err != nil {
		return err
	}
	if meta.LastUnburied == s.clock.Today {
		return nil
	}
	if err := s.UnburyAll(); err != nil {
		return err
	}
	meta.LastUnburied = s.clock.Today
	if err := s.store.SaveMeta(meta); err != nil {
		return err
	}
	slog.Info("rolled scheduler day", "today", s.clock.Today)
	return nil
}

// GetNextCard pops the next card to show, or nil when the session is done.
// The returned card has its timer started, and its siblings are buried when
// the deck configuration asks for it.
func (s *Scheduler) GetNextCard() (*domain.Card, error) {
	// A session crossing the cutoff starts a fresh day.
	if s.opts.Now().After(s.clock.DayCutoff) {
		s.haveQueues = false
	}
	if !s.haveQueues {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}
	id, err := s.nextCardID()
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	card, err := s.store.GetCard(id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		// Deleted behind our back; try the next one.
		return s.GetNextCard()
	}
	s.reps++
	card.StartTimer(s.opts.Now())
	if err := s.burySiblings(card); err != nil {
		return nil, err
	}
	return card, nil
}

// NewCount returns the remaining new cards for today's active decks.
func (s *Scheduler) NewCount() int { return s.newCount }

// LearnCount returns the remaining learning cards for today.
func (s *Scheduler) LearnCount() int { return s.lrnCount }

// ReviewCount returns the remaining review cards for today.
func (s *Scheduler) ReviewCount() int { return s.revCount }

// Counts returns (new, learning, review) in one call.
func (s *Scheduler) Counts() (int, int, int) {
	return s.newCount, s.lrnCount, s.revCount
}

// updateDailyStats bumps the per-day counters of the card's deck and every
// ancestor, marking them dirty so they persist with the answer.
func (s *Scheduler) updateDailyStats(c *domain.Card, pool string, cnt int) error {
	d, err := s.decks.Get(c.DeckID)
	if err != nil {
		return err
	}
	parents, err := s.decks.Parents(c.DeckID)
	if err != nil {
		return err
	}
	for _, target := range append([]*domain.Deck{d}, parents...) {
		bump(s.counterFor(target, pool), s.clock.Today, cnt)
		target.Mtime = s.clock.Now.Unix()
		s.decks.MarkDirty(target.ID)
	}
	return nil
}

func (s *Scheduler) counterFor(d *domain.Deck, pool string) *domain.DayCount {
	switch pool {
	case "new":
		return &d.NewToday
	case "rev":
		return &d.RevToday
	case "time":
		return &d.TimeToday
	default:
		return &d.LrnToday
	}
}

func bump(c *domain.DayCount, today, cnt int) {
	c.Count = c.For(today) + cnt
	c.Day = today
}

// ExtendLimits raises today's new/review allowance for the current deck, its
// ancestors and its descendants by lowering their day counters.
func (s *Scheduler) ExtendLimits(extraNew, extraRev int) error {
	cur, err := s.decks.Get(s.decks.Current())
	if err != nil {
		return err
	}
	parents, err := s.decks.Parents(cur.ID)
	if err != nil {
		return err
	}
	children, err := s.decks.Children(cur.ID)
	if err != nil {
		return err
	}
	targets := append([]*domain.Deck{cur}, parents...)
	targets = append(targets, children...)
	for _, d := range targets {
		bump(&d.NewToday, s.clock.Today, -extraNew)
		bump(&d.RevToday, s.clock.Today, -extraRev)
		d.Mtime = s.clock.Now.Unix()
		s.decks.MarkDirty(d.ID)
	}
	return s.decks.FlushDirty()
}

// removeFromQueues drops the given card ids from every in-memory queue, used
// after a mutation such as burying or suspending invalidates them.
func (s *Scheduler) removeFromQueues(ids map[int64]bool) {
	s.newQueue = filterIDs(s.newQueue, ids)
	s.revQueue = filterIDs(s.revQueue, ids)
	s.lrnDayQueue = filterIDs(s.lrnDayQueue, ids)
	kept := s.lrnQueue[:0]
	for _, e := range s.lrnQueue {
		if !ids[e.ID] {
			kept = append(kept, e)
		}
	}
	s.lrnQueue = kept
}

func filterIDs(queue []int64, drop map[int64]bool) []int64 {
	kept := queue[:0]
	for _, id := range queue {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
