package sched

import (
	"testing"

	"github.com/conorfennell/decksched/internal/domain"
)

func TestPolicyForRejectsUnknownVersion(t *testing.T) {
	for _, v := range []int{0, 3, 99} {
		if _, err := policyFor(v); err == nil {
			t.Errorf("policyFor(%d) accepted", v)
		}
	}
	for _, v := range []int{1, 2} {
		p, err := policyFor(v)
		if err != nil {
			t.Fatalf("policyFor(%d): %v", v, err)
		}
		if p.version() != v {
			t.Errorf("policyFor(%d).version() = %d", v, p.version())
		}
	}
}

func TestV1RestoreDemotesLearning(t *testing.T) {
	c := &domain.Card{Kind: domain.KindLearning, Queue: domain.QueueLearning, Left: 1001}
	v1Policy{}.restoreAfterFiltered(c, 42)
	if c.Kind != domain.KindNew || c.Queue != domain.QueueNew {
		t.Fatalf("kind/queue = %v/%v, want New/New", c.Kind, c.Queue)
	}
	if c.Due != 42 || c.Left != 0 {
		t.Fatalf("due/left = %d/%d, want 42/0", c.Due, c.Left)
	}
}

func TestV2RestoreKeepsKind(t *testing.T) {
	c := &domain.Card{Kind: domain.KindRelearning, Queue: domain.QueueLearning}
	v2Policy{}.restoreAfterFiltered(c, 1_700_000_000)
	if c.Kind != domain.KindRelearning {
		t.Fatalf("kind = %v, want Relearning", c.Kind)
	}
	// A timestamp due puts the card back on a sub-day step.
	if c.Queue != domain.QueueLearning {
		t.Fatalf("queue = %v, want Learning", c.Queue)
	}

	day := &domain.Card{Kind: domain.KindRelearning, Queue: domain.QueueLearning}
	v2Policy{}.restoreAfterFiltered(day, 15)
	if day.Queue != domain.QueueDayLearning {
		t.Fatalf("queue = %v, want DayLearning for a day-offset due", day.Queue)
	}
}
