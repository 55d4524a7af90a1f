package sched

import (
	"testing"
	"time"

	"github.com/conorfennell/decksched/internal/domain"
)

func TestNewCardWalksLearningSteps(t *testing.T) {
	f := newFixture(t)
	f.addCard(1)
	f.reset()

	c := f.next()
	f.answer(c, domain.Good)
	if c.Kind != domain.KindLearning || c.Queue != domain.QueueLearning {
		t.Fatalf("kind/queue = %v/%v, want Learning/Learning", c.Kind, c.Queue)
	}
	// Good on a fresh card skips past the first step to the second one.
	if want := f.now.Unix() + 600; c.Due != want {
		t.Fatalf("due = %d, want %d", c.Due, want)
	}
	if c.Left%1000 != 1 {
		t.Fatalf("steps left = %d, want 1", c.Left%1000)
	}

	f.advance(11 * time.Minute)
	f.answer(c, domain.Good)
	if c.Kind != domain.KindReview || c.Queue != domain.QueueReview {
		t.Fatalf("kind/queue = %v/%v, want Review/Review", c.Kind, c.Queue)
	}
	if c.Interval != 1 {
		t.Fatalf("graduating interval = %d, want 1", c.Interval)
	}
	if c.Factor != domain.StartingFactor {
		t.Fatalf("factor = %d, want %d", c.Factor, domain.StartingFactor)
	}
	if want := int64(f.sched.Today() + 1); c.Due != want {
		t.Fatalf("due = %d, want %d", c.Due, want)
	}
	if c.Left != 0 {
		t.Fatalf("left = %d, want 0", c.Left)
	}
}

func TestEasyGraduatesImmediately(t *testing.T) {
	f := newFixture(t)
	f.addCard(1)
	f.reset()

	c := f.next()
	f.answer(c, domain.Easy)
	if c.Kind != domain.KindReview {
		t.Fatalf("kind = %v, want Review", c.Kind)
	}
	lo, hi := fuzzRange(4) // easy interval from the default config
	if c.Interval < lo || c.Interval > hi {
		t.Fatalf("interval = %d, want in [%d, %d]", c.Interval, lo, hi)
	}
	if want := int64(f.sched.Today() + c.Interval); c.Due != want {
		t.Fatalf("due = %d, want %d", c.Due, want)
	}
}

func TestAgainRestartsSteps(t *testing.T) {
	f := newFixture(t)
	f.addCard(1)
	f.reset()

	c := f.next()
	f.answer(c, domain.Good)
	f.advance(time.Minute)
	f.answer(c, domain.Again)

	if c.Kind != domain.KindLearning {
		t.Fatalf("kind = %v, want Learning", c.Kind)
	}
	if c.Left%1000 != 2 {
		t.Fatalf("steps left = %d, want 2 after restart", c.Left%1000)
	}
	if want := f.now.Unix() + 60; c.Due != want {
		t.Fatalf("due = %d, want first step at %d", c.Due, want)
	}
}

func TestHardRepeatsStepHalfway(t *testing.T) {
	f := newFixture(t)
	f.addCard(1)
	f.reset()

	c := f.next()
	f.answer(c, domain.Hard)
	// Halfway between the one-minute step and the ten-minute one.
	if want := f.now.Unix() + 330; c.Due != want {
		t.Fatalf("due = %d, want %d", c.Due, want)
	}
	if c.Left%1000 != 2 {
		t.Fatalf("steps left = %d, Hard must not consume a step", c.Left%1000)
	}
}

func TestReviewGoodGrowsInterval(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	f.reset()

	f.answer(c, domain.Good)
	if c.Interval <= 10 {
		t.Fatalf("interval = %d, want growth past 10", c.Interval)
	}
	if c.Factor != 2500 {
		t.Fatalf("factor = %d, Good must not move the ease", c.Factor)
	}
	if want := int64(f.sched.Today() + c.Interval); c.Due != want {
		t.Fatalf("due = %d, want %d", c.Due, want)
	}

	logs, err := f.store.RevlogForCard(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("revlog entries = %d, want 1", len(logs))
	}
	e := logs[0]
	if e.Kind != domain.RevlogReview || e.Grade != domain.Good {
		t.Fatalf("revlog kind/grade = %v/%v", e.Kind, e.Grade)
	}
	if e.LastInterval != 10 || e.Interval != c.Interval {
		t.Fatalf("revlog intervals = %d -> %d, want 10 -> %d", e.LastInterval, e.Interval, c.Interval)
	}
}

func TestReviewButtonsStayOrdered(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	f.reset()
	conf, err := f.decks.ConfFor(1)
	if err != nil {
		t.Fatal(err)
	}

	hard := f.sched.nextReviewInterval(c, domain.Hard, conf, false)
	good := f.sched.nextReviewInterval(c, domain.Good, conf, false)
	easy := f.sched.nextReviewInterval(c, domain.Easy, conf, false)
	if !(c.Interval < hard && hard < good && good < easy) {
		t.Fatalf("intervals not strictly ordered: ivl=%d hard=%d good=%d easy=%d",
			c.Interval, hard, good, easy)
	}
}

func TestReviewHardAndEasyMoveEase(t *testing.T) {
	f := newFixture(t)
	hardCard := f.addReviewCard(1, 10, 2500)
	easyCard := f.addReviewCard(1, 10, 2500)
	f.reset()

	f.answer(hardCard, domain.Hard)
	if hardCard.Factor != 2350 {
		t.Fatalf("factor after Hard = %d, want 2350", hardCard.Factor)
	}
	f.answer(easyCard, domain.Easy)
	if easyCard.Factor != 2650 {
		t.Fatalf("factor after Easy = %d, want 2650", easyCard.Factor)
	}
}

func TestReviewLapseEntersRelearning(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	f.reset()

	f.answer(c, domain.Again)
	if c.Lapses != 1 {
		t.Fatalf("lapses = %d, want 1", c.Lapses)
	}
	if c.Factor != 2300 {
		t.Fatalf("factor = %d, want 2300", c.Factor)
	}
	if c.Kind != domain.KindRelearning || c.Queue != domain.QueueLearning {
		t.Fatalf("kind/queue = %v/%v, want Relearning/Learning", c.Kind, c.Queue)
	}
	// With the default zero lapse multiplier the post-lapse interval
	// bottoms out at the configured minimum.
	if c.Interval != 1 {
		t.Fatalf("interval = %d, want 1", c.Interval)
	}
	if want := f.now.Unix() + 600; c.Due != want {
		t.Fatalf("due = %d, want relearning step at %d", c.Due, want)
	}

	logs, _ := f.store.RevlogForCard(c.ID)
	if len(logs) != 1 || logs[0].Interval != -600 {
		t.Fatalf("revlog = %+v, want one entry with interval -600", logs)
	}
}

func TestEaseFloorAt1300(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 1350)
	f.reset()

	f.answer(c, domain.Again)
	if c.Factor != 1300 {
		t.Fatalf("factor = %d, want floor of 1300", c.Factor)
	}
}

func TestLeechSuspends(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	c.Lapses = 7
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}
	f.reset()

	res := f.answer(c, domain.Again)
	if !res.Leeched || res.LeechAction != domain.LeechSuspend {
		t.Fatalf("result = %+v, want suspend leech", res)
	}
	stored, _ := f.store.GetCard(c.ID)
	if stored.Queue != domain.QueueSuspended {
		t.Fatalf("queue = %v, want Suspended", stored.Queue)
	}
	// The suspension wins over the relearning steps.
	if stored.Kind != domain.KindReview {
		t.Fatalf("kind = %v, want Review", stored.Kind)
	}
}

func TestLeechTagsNote(t *testing.T) {
	f := newFixture(t)
	conf, err := f.decks.Config(1)
	if err != nil {
		t.Fatal(err)
	}
	conf.Lapse.LeechAction = domain.LeechTagOnly

	c := f.addReviewCard(1, 10, 2500)
	c.Lapses = 7
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}
	f.reset()

	res := f.answer(c, domain.Again)
	if !res.Leeched || res.LeechAction != domain.LeechTagOnly {
		t.Fatalf("result = %+v, want tag-only leech", res)
	}
	if c.Queue == domain.QueueSuspended {
		t.Fatal("tag-only leech must not suspend")
	}
	note, err := f.store.GetNote(c.NoteID)
	if err != nil {
		t.Fatal(err)
	}
	if !note.HasTag("leech") {
		t.Fatalf("note tags = %v, want leech tag", note.Tags)
	}
}

func TestLeechFiresOnExactMultiplesOnly(t *testing.T) {
	f := newFixture(t)
	c := f.addReviewCard(1, 10, 2500)
	c.Lapses = 5
	if err := f.store.UpdateCardSched(c); err != nil {
		t.Fatal(err)
	}
	f.reset()

	if res := f.answer(c, domain.Again); res.Leeched {
		t.Fatalf("leech fired at %d lapses with threshold 8", c.Lapses)
	}
}

func TestAnswerRejectsInvalidGrade(t *testing.T) {
	f := newFixture(t)
	c := f.addCard(1)
	f.reset()

	if _, err := f.sched.AnswerCard(c, domain.Grade(0)); err == nil {
		t.Fatal("expected error for grade 0")
	}
	if _, err := f.sched.AnswerCard(c, domain.Grade(5)); err == nil {
		t.Fatal("expected error for grade 5")
	}
}
