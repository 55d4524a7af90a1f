package sched

import (
	"testing"
)

func TestDescribeNextIntervalsNewCard(t *testing.T) {
	f := newFixture(t)
	c := f.addCard(1)
	f.reset()

	p, err := f.sched.DescribeNextIntervals(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Again != "1m" {
		t.Errorf("again = %q, want 1m", p.Again)
	}
	if p.Hard != "6m" {
		t.Errorf("hard = %q, want 6m", p.Hard)
	}
	if p.Good != "10m" {
		t.Errorf("good = %q, want 10m", p.Good)
	}
	if p.Easy != "4d" {
		t.Errorf("easy = %q, want 4d", p.Easy)
	}
}

func TestDescribeNextIntervalsReviewCard(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	f.reset()

	p, err := f.sched.DescribeNextIntervals(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Again != "10m" {
		t.Errorf("again = %q, want first relearning step", p.Again)
	}
	if p.Hard != "12d" {
		t.Errorf("hard = %q, want 12d", p.Hard)
	}
	if p.Good != "25d" {
		t.Errorf("good = %q, want 25d", p.Good)
	}
	if p.Easy != "1.1mo" {
		t.Errorf("easy = %q, want 1.1mo", p.Easy)
	}
}

func TestDescribeDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	f.reset()
	before := c.Clone()

	if _, err := f.sched.DescribeNextIntervals(c); err != nil {
		t.Fatal(err)
	}
	if *c != *before {
		t.Fatalf("describe mutated the card: %+v vs %+v", c, before)
	}
}

func TestFormatTimeSpan(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "now"},
		{45, "45s"},
		{90, "2m"},
		{600, "10m"},
		{3600, "1h"},
		{86400, "1d"},
		{86400 * 15, "15d"},
		{86400 * 60, "2.0mo"},
		{86400 * 730, "2.0y"},
	}
	for _, c := range cases {
		if got := formatTimeSpan(c.secs); got != c.want {
			t.Errorf("formatTimeSpan(%d) = %q, want %q", c.secs, got, c.want)
		}
	}
}

func TestDueTreeCounts(t *testing.T) {
	f := newFixture(t)
	f.addCard(1)
	f.addCard(1)
	f.addReviewCard(1, 5, 2500)
	f.reset()

	tree, err := f.sched.DueTree()
	if err != nil {
		t.Fatal(err)
	}
	var def *DeckCounts
	for i := range tree {
		if tree[i].DeckID == 1 {
			def = &tree[i]
		}
	}
	if def == nil {
		t.Fatal("default deck missing from tree")
	}
	if def.New != 2 || def.Review != 1 || def.Learn != 0 {
		t.Fatalf("counts = %+v, want 2 new, 1 review", def)
	}
}
