package sched

import (
	"testing"

	"github.com/conorfennell/decksched/internal/domain"
)

func (f *fixture) addFilteredDeck(t *testing.T) *domain.Deck {
	t.Helper()
	fd, err := f.decks.CreateFiltered("Cram", []domain.FilterTerm{
		{Search: "Default", Limit: 100, Order: domain.FilterOrderDue},
	})
	if err != nil {
		t.Fatalf("create filtered deck: %v", err)
	}
	return fd
}

func TestRebuildFilteredParksCards(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	fd := f.addFilteredDeck(t)

	n, err := f.sched.RebuildFiltered(fd.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("gathered %d cards, want 1", n)
	}

	stored, err := f.store.GetCard(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.DeckID != fd.ID {
		t.Fatalf("deck = %d, want filtered deck %d", stored.DeckID, fd.ID)
	}
	if stored.OriginalDeckID != 1 {
		t.Fatalf("original deck = %d, want 1", stored.OriginalDeckID)
	}
	if stored.OriginalDue != c.Due {
		t.Fatalf("original due = %d, want %d", stored.OriginalDue, c.Due)
	}
	if stored.Due != -100_000 {
		t.Fatalf("due = %d, want first gather position -100000", stored.Due)
	}
}

func TestRebuildFilteredRejectsStandardDeck(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sched.RebuildFiltered(1); err == nil {
		t.Fatal("expected error rebuilding a standard deck")
	}
}

func TestEmptyFilteredDeckRestores(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	origDue := c.Due
	fd := f.addFilteredDeck(t)
	if _, err := f.sched.RebuildFiltered(fd.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.sched.EmptyFilteredDeck(fd.ID); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.store.GetCard(c.ID)
	if stored.DeckID != 1 {
		t.Fatalf("deck = %d, want home deck 1", stored.DeckID)
	}
	if stored.Due != origDue {
		t.Fatalf("due = %d, want restored %d", stored.Due, origDue)
	}
	if stored.Queue != domain.QueueReview {
		t.Fatalf("queue = %v, want Review", stored.Queue)
	}
	if stored.OriginalDeckID != 0 || stored.OriginalDue != 0 {
		t.Fatalf("parked fields not cleared: odid=%d odue=%d",
			stored.OriginalDeckID, stored.OriginalDue)
	}
}

func TestAnswerInFilteredGoesHome(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	fd := f.addFilteredDeck(t)
	if _, err := f.sched.RebuildFiltered(fd.ID); err != nil {
		t.Fatal(err)
	}

	parked, err := f.store.GetCard(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.answer(parked, domain.Good)

	if parked.DeckID != 1 {
		t.Fatalf("deck = %d, want home deck 1", parked.DeckID)
	}
	if parked.OriginalDeckID != 0 || parked.OriginalDue != 0 {
		t.Fatalf("parked fields survive the answer: odid=%d odue=%d",
			parked.OriginalDeckID, parked.OriginalDue)
	}
	if want := int64(f.sched.Today() + parked.Interval); parked.Due != want {
		t.Fatalf("due = %d, want %d", parked.Due, want)
	}
}

func TestEarlyAnswerInFilteredUsesElapsed(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	c.Due = int64(f.sched.Today() + 5) // not due for another five days
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}
	fd := f.addFilteredDeck(t)
	if _, err := f.sched.RebuildFiltered(fd.ID); err != nil {
		t.Fatal(err)
	}

	parked, err := f.store.GetCard(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.answer(parked, domain.Good)

	// Five elapsed days at ease 2.5 credit about half the old interval.
	if want := 12; parked.Interval != want {
		t.Fatalf("interval = %d, want %d", parked.Interval, want)
	}
	logs, _ := f.store.RevlogForCard(c.ID)
	if len(logs) != 1 || logs[0].Kind != domain.RevlogEarlyReview {
		t.Fatalf("revlog = %+v, want one early-review entry", logs)
	}
}

func TestPreviewDeckCycle(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	origDue := c.Due
	fd := f.addFilteredDeck(t)
	fd.Resched = false
	if _, err := f.sched.RebuildFiltered(fd.ID); err != nil {
		t.Fatal(err)
	}

	parked, err := f.store.GetCard(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if parked.Queue != domain.QueuePreview {
		t.Fatalf("queue = %v, want Preview", parked.Queue)
	}

	// Again repeats the card after the preview delay.
	f.answer(parked, domain.Again)
	if parked.Queue != domain.QueuePreview {
		t.Fatalf("queue after Again = %v, want Preview", parked.Queue)
	}
	if want := f.now.Unix() + int64(fd.PreviewDelay*60); parked.Due != want {
		t.Fatalf("due = %d, want %d", parked.Due, want)
	}

	// Anything else sends the card home untouched.
	f.answer(parked, domain.Good)
	if parked.DeckID != 1 || parked.Due != origDue {
		t.Fatalf("card not restored: deck=%d due=%d, want 1/%d",
			parked.DeckID, parked.Due, origDue)
	}
	if parked.Interval != 10 {
		t.Fatalf("interval = %d, preview must not reschedule", parked.Interval)
	}

	// Preview answers leave no revlog trail.
	logs, _ := f.store.RevlogForCard(c.ID)
	if len(logs) != 0 {
		t.Fatalf("revlog entries = %d, want 0", len(logs))
	}
}
