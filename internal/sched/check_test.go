package sched

import (
	"testing"
)

func TestCheckIntegrityCleanCollection(t *testing.T) {
	f := newFixture(t)
	f.addCard(1)

	rep, err := f.sched.CheckIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Repaired() {
		t.Fatalf("clean collection reported repairs: %+v", rep)
	}
}

func TestCheckIntegrityClearsStaleOriginalDue(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	c.OriginalDue = 5 // restore value without a filtered parking
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}

	rep, err := f.sched.CheckIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if rep.StaleOriginalDue != 1 {
		t.Fatalf("stale odue repairs = %d, want 1", rep.StaleOriginalDue)
	}
	stored, _ := f.store.GetCard(c.ID)
	if stored.OriginalDue != 0 {
		t.Fatalf("original due = %d, want cleared", stored.OriginalDue)
	}
}

func TestCheckIntegrityWrapsNewPositions(t *testing.T) {
	f := newFixture(t)
	c := f.addCard(1)
	c.Due = 2_500_000
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}

	rep, err := f.sched.CheckIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if rep.NewOutOfRange != 1 {
		t.Fatalf("out-of-range repairs = %d, want 1", rep.NewOutOfRange)
	}
	stored, _ := f.store.GetCard(c.ID)
	if stored.Due != 500_000 {
		t.Fatalf("due = %d, want wrapped to 500000", stored.Due)
	}
}

func TestCheckIntegrityRehomesOrphanedCards(t *testing.T) {
	f := newFixture(t)
	c := f.addCard(1)
	c.DeckID = 999_999 // no such deck
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}

	rep, err := f.sched.CheckIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if rep.MissingDeck != 1 {
		t.Fatalf("missing-deck repairs = %d, want 1", rep.MissingDeck)
	}
	stored, _ := f.store.GetCard(c.ID)
	if stored.DeckID != 1 {
		t.Fatalf("deck = %d, want rehomed to 1", stored.DeckID)
	}
}
