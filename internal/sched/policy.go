package sched

import (
	"fmt"

	"github.com/conorfennell/decksched/internal/domain"
)

// policy captures the points where the v1 and v2 rule sets diverge. It is
// chosen once when the scheduler is constructed; the shared algorithm never
// branches on a version number directly.
type policy interface {
	version() int

	// restoreAfterFiltered resets kind/queue/due after a card leaves a
	// filtered deck, given the restored original due.
	restoreAfterFiltered(c *domain.Card, restoredDue int64)
}

func policyFor(version int) (policy, error) {
	switch version {
	case 1:
		return v1Policy{}, nil
	case 2:
		return v2Policy{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidSchedulerVersion, version)
	}
}

// v1Policy is the legacy rule set: cards caught mid-learning when a filtered
// deck is emptied are demoted back to New, since v1 cannot represent a
// learning card with a day-offset due outside its home deck.
type v1Policy struct{}

func (v1Policy) version() int { return 1 }

func (v1Policy) restoreAfterFiltered(c *domain.Card, restoredDue int64) {
	c.Due = restoredDue
	if c.Kind == domain.KindLearning || c.Kind == domain.KindRelearning {
		c.Kind = domain.KindNew
		c.Queue = domain.QueueNew
		c.Left = 0
		return
	}
	c.Queue = restoredQueue(c)
}

// v2Policy keeps the card's kind and recovers the matching queue.
type v2Policy struct{}

func (v2Policy) version() int { return 2 }

func (v2Policy) restoreAfterFiltered(c *domain.Card, restoredDue int64) {
	c.Due = restoredDue
	c.Queue = restoredQueue(c)
}

// restoredQueue maps a card's kind (and due encoding) back to the queue it
// belongs in, used when unsuspending, unburying or leaving a filtered deck.
func restoredQueue(c *domain.Card) domain.QueueKind {
	switch c.Kind {
	case domain.KindLearning, domain.KindRelearning:
		// A due above one billion is a unix timestamp, so the card is on
		// a sub-day step; otherwise it is a day offset.
		if c.Due > 1_000_000_000 {
			return domain.QueueLearning
		}
		return domain.QueueDayLearning
	case domain.KindNew:
		return domain.QueueNew
	default:
		return domain.QueueReview
	}
}
