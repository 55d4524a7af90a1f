package sched

import (
	"testing"

	"github.com/conorfennell/decksched/internal/domain"
)

func TestDistributeShowsReviewThenNew(t *testing.T) {
	f := newFixture(t)
	nc := f.addCard(1)
	rev := f.addReviewCard(1, 10, 2500)
	f.reset()

	// With one of each the modulus is 2, so the review comes up first and
	// the new card follows on the next pop.
	first := f.next()
	if first == nil || first.ID != rev.ID {
		t.Fatalf("first card = %+v, want the review card %d", first, rev.ID)
	}
	second := f.next()
	if second == nil || second.ID != nc.ID {
		t.Fatalf("second card = %+v, want the new card %d", second, nc.ID)
	}
}

func TestNewFirstShowsNewBeforeReviews(t *testing.T) {
	f := newFixture(t)
	nc := f.addCard(1)
	f.addReviewCard(1, 10, 2500)
	f.sched.opts.NewSpread = domain.NewCardsFirst
	f.reset()

	first := f.next()
	if first == nil || first.ID != nc.ID {
		t.Fatalf("first card = %+v, want the new card %d", first, nc.ID)
	}
}

func TestNewLastShowsNewAfterReviews(t *testing.T) {
	f := newFixture(t)
	nc := f.addCard(1)
	rev1 := f.addReviewCard(1, 10, 2500)
	rev2 := f.addReviewCard(1, 10, 2500)
	f.sched.opts.NewSpread = domain.NewCardsLast
	f.reset()

	reviews := map[int64]bool{rev1.ID: true, rev2.ID: true}
	for i := 0; i < 2; i++ {
		c := f.next()
		if c == nil || !reviews[c.ID] {
			t.Fatalf("pop %d = %+v, want a review card", i, c)
		}
	}
	last := f.next()
	if last == nil || last.ID != nc.ID {
		t.Fatalf("last card = %+v, want the new card %d", last, nc.ID)
	}
}

func TestNewCardModulus(t *testing.T) {
	f := newFixture(t)
	s := f.sched

	// Reviews remaining force at least every other pop.
	s.newCount, s.revCount = 2, 1
	s.updateNewCardModulus()
	if s.newCardModulus != 2 {
		t.Fatalf("modulus = %d, want floor of 2 while reviews remain", s.newCardModulus)
	}

	s.newCount, s.revCount = 2, 6
	s.updateNewCardModulus()
	if s.newCardModulus != 4 {
		t.Fatalf("modulus = %d, want 4", s.newCardModulus)
	}

	// No new cards disables interleaving.
	s.newCount, s.revCount = 0, 5
	s.updateNewCardModulus()
	if s.newCardModulus != 0 {
		t.Fatalf("modulus = %d, want 0 with no new cards", s.newCardModulus)
	}
}
