package domain

import (
	"fmt"
	"strings"
)

// NameSeparator joins the components of a hierarchical deck name.
const NameSeparator = "::"

// DayCount is a per-day counter tagged with the scheduler day it was last
// reset on. Counters from a previous day are treated as zero.
type DayCount struct {
	Day   int
	Count int
}

// For returns the counter value for the given scheduler day.
func (d DayCount) For(today int) int {
	if d.Day != today {
		return 0
	}
	return d.Count
}

// FilterOrder is the ordering rule a filtered deck applies when gathering.
type FilterOrder int

const (
	FilterOrderOldestSeen FilterOrder = iota
	FilterOrderRandom
	FilterOrderIntervalsAsc
	FilterOrderIntervalsDesc
	FilterOrderDue
	FilterOrderAdded
)

// FilterTerm is one search/limit/order rule embedded in a filtered deck.
// Search is a deck name; cards are gathered from that deck and its subdecks.
type FilterTerm struct {
	Search string
	Limit  int
	Order  FilterOrder
}

// Deck is one node in the deck tree. Standard decks reference a shared
// DeckConfig; filtered (dynamic) decks embed their own gathering terms.
type Deck struct {
	ID        int64
	Name      string // hierarchical, "::"-separated
	ConfID    int64
	Dyn       bool
	Desc      string
	Collapsed bool
	Mtime     int64
	USN       int

	NewToday  DayCount
	RevToday  DayCount
	LrnToday  DayCount
	TimeToday DayCount // milliseconds spent answering

	// Raising today's limits; applied on top of the config's per-day caps.
	ExtendNew int
	ExtendRev int

	// Filtered decks only.
	Terms        []FilterTerm
	Resched      bool
	PreviewDelay int // minutes
}

// BaseName returns the last component of the deck name.
func (d *Deck) BaseName() string {
	parts := strings.Split(d.Name, NameSeparator)
	return parts[len(parts)-1]
}

// ParentName returns the name of the immediate parent deck, or "" for a
// top-level deck.
func (d *Deck) ParentName() string {
	idx := strings.LastIndex(d.Name, NameSeparator)
	if idx < 0 {
		return ""
	}
	return d.Name[:idx]
}

// IsAncestorName reports whether ancestor names a strict ancestor of name.
func IsAncestorName(ancestor, name string) bool {
	return strings.HasPrefix(name, ancestor+NameSeparator)
}

// LeechAction is what happens when a card crosses the leech threshold.
type LeechAction int

const (
	LeechSuspend LeechAction = iota
	LeechTagOnly
)

// String returns the name of the action.
func (a LeechAction) String() string {
	switch a {
	case LeechSuspend:
		return "Suspend"
	case LeechTagOnly:
		return "TagOnly"
	}
	return fmt.Sprintf("LeechAction(%d)", int(a))
}

// NewOrder controls the due ordering assigned to freshly added cards.
type NewOrder int

const (
	NewCardsRandom NewOrder = iota
	NewCardsDue
)

// NewSpread controls how new cards interleave with reviews.
type NewSpread int

const (
	NewCardsDistribute NewSpread = iota
	NewCardsLast
	NewCardsFirst
)

// StartingFactor is the ease factor assigned on graduation, permille.
const StartingFactor = 2500

// NewConfig is the new-card section of a deck configuration.
// Delays are step lengths in minutes.
type NewConfig struct {
	Delays        []float64 `json:"delays" validate:"required,min=1"`
	GraduatingIvl int       `json:"graduatingIvl" validate:"min=1"`
	EasyIvl       int       `json:"easyIvl" validate:"min=1"`
	InitialFactor int       `json:"initialFactor" validate:"min=1300"`
	Order         NewOrder  `json:"order"`
	PerDay        int       `json:"perDay" validate:"min=0"`
	Bury          bool      `json:"bury"`
}

// LapseConfig is the lapse section of a deck configuration.
type LapseConfig struct {
	Delays      []float64   `json:"delays"`
	Mult        float64     `json:"mult" validate:"min=0,max=1"`
	MinIvl      int         `json:"minIvl" validate:"min=1"`
	LeechFails  int         `json:"leechFails" validate:"min=1"`
	LeechAction LeechAction `json:"leechAction"`
}

// ReviewConfig is the review section of a deck configuration.
type ReviewConfig struct {
	PerDay     int     `json:"perDay" validate:"min=0"`
	Ease4      float64 `json:"ease4" validate:"min=1"`
	IvlFct     float64 `json:"ivlFct" validate:"gt=0"`
	MaxIvl     int     `json:"maxIvl" validate:"min=1"`
	HardFactor float64 `json:"hardFactor" validate:"min=0.5"`
	Bury       bool    `json:"bury"`
}

// DeckConfig is a configuration group shared by zero or more standard decks.
type DeckConfig struct {
	ID       int64
	Name     string
	New      NewConfig
	Lapse    LapseConfig
	Review   ReviewConfig
	MaxTaken int // seconds; answer times are capped at this
	Mtime    int64
	USN      int
}

// DefaultDeckConfig returns the configuration assigned to new groups.
func DefaultDeckConfig(id int64, name string) *DeckConfig {
	return &DeckConfig{
		ID:   id,
		Name: name,
		New: NewConfig{
			Delays:        []float64{1, 10},
			GraduatingIvl: 1,
			EasyIvl:       4,
			InitialFactor: StartingFactor,
			Order:         NewCardsDue,
			PerDay:        20,
		},
		Lapse: LapseConfig{
			Delays:      []float64{10},
			Mult:        0,
			MinIvl:      1,
			LeechFails:  8,
			LeechAction: LeechSuspend,
		},
		Review: ReviewConfig{
			PerDay:     200,
			Ease4:      1.3,
			IvlFct:     1,
			MaxIvl:     36500,
			HardFactor: 1.2,
		},
		MaxTaken: 60,
	}
}

// ValidateDeckName rejects empty names and empty name components.
func ValidateDeckName(name string) error {
	if name == "" {
		return fmt.Errorf("domain: empty deck name")
	}
	for _, part := range strings.Split(name, NameSeparator) {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("domain: deck name %q has an empty component", name)
		}
	}
	return nil
}
