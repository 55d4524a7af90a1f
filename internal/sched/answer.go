package sched

import (
	"fmt"
	"time"

	"github.com/conorfennell/decksched/internal/domain"
)

// AnswerResult reports side effects of grading a card that the caller may
// want to surface, beyond the card's own state change.
type AnswerResult struct {
	// Leeched is set when this answer pushed the card over the leech
	// threshold; LeechAction says what was done about it.
	Leeched     bool
	LeechAction domain.LeechAction
}

// AnswerCard applies a grade to a card the caller obtained from GetNextCard,
// moves the card through its state machine, appends a revlog entry, bumps
// the daily counters and persists everything in one transaction. The answer
// becomes the new undo target.
func (s *Scheduler) AnswerCard(card *domain.Card, grade domain.Grade) (*AnswerResult, error) {
	if !grade.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}
	if !s.haveQueues {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}

	now := s.opts.Now()
	res := &AnswerResult{}
	before := card.Clone()
	deckSnap, err := s.snapshotCounters(card.DeckID)
	if err != nil {
		return nil, err
	}
	conf, err := s.decks.ConfFor(card.HomeDeckID())
	if err != nil {
		return nil, err
	}

	var entry *domain.RevlogEntry
	if preview, perr := s.previewing(card); perr != nil {
		return nil, perr
	} else if preview {
		s.answerPreview(card, grade, now)
	} else {
		entry, err = s.answerStandard(card, grade, conf, now, res)
		if err != nil {
			return nil, err
		}
	}

	taken := card.TimeTaken(now, conf.MaxTaken)
	if err := s.updateDailyStats(card, "time", taken); err != nil {
		return nil, err
	}
	if entry != nil {
		entry.TimeTakenMs = taken
	}

	card.Mtime = now.Unix()
	card.USN = s.usn
	logID, err := s.store.CommitAnswer(card, entry, s.decks.Dirty())
	if err != nil {
		return nil, err
	}
	s.decks.ClearDirty()
	s.lastUndo = &undoStep{card: before, revlogID: logID, decks: deckSnap}
	return res, nil
}

// previewing reports whether the card sits in a filtered deck that shows
// cards without rescheduling them.
func (s *Scheduler) previewing(card *domain.Card) (bool, error) {
	if !card.InFiltered() {
		return false, nil
	}
	d, err := s.decks.Get(card.DeckID)
	if err != nil {
		return false, err
	}
	return d.Dyn && !d.Resched, nil
}

// answerPreview cycles a card through a non-rescheduling filtered deck:
// Again shows it once more after the preview delay, anything else sends it
// home untouched. Preview answers leave no revlog trail.
func (s *Scheduler) answerPreview(card *domain.Card, grade domain.Grade, now time.Time) {
	if grade == domain.Again {
		delay := 600
		if d, err := s.decks.Get(card.DeckID); err == nil && d.PreviewDelay > 0 {
			delay = d.PreviewDelay * 60
		}
		card.Queue = domain.QueuePreview
		card.Due = now.Unix() + int64(delay)
		s.requeueLearning(card.ID, card.Due)
		return
	}
	s.policy.restoreAfterFiltered(card, card.OriginalDue)
	s.leaveFiltered(card)
}

// answerStandard runs the ordinary state machine: new cards enter learning,
// learning cards walk their steps, review cards get a new interval.
func (s *Scheduler) answerStandard(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig, now time.Time, res *AnswerResult) (*domain.RevlogEntry, error) {
	card.Reps++

	if card.Queue == domain.QueueNew {
		card.Queue = domain.QueueLearning
		card.Kind = domain.KindLearning
		card.Left = s.startingLeft(card, conf, now)
		if err := s.updateDailyStats(card, "new", 1); err != nil {
			return nil, err
		}
	}

	var entry *domain.RevlogEntry
	switch card.Queue {
	case domain.QueueLearning, domain.QueueDayLearning:
		entry = s.answerLearning(card, grade, conf, now)
		if err := s.updateDailyStats(card, "lrn", 1); err != nil {
			return nil, err
		}
	case domain.QueueReview:
		e, err := s.answerReview(card, grade, conf, now, res)
		if err != nil {
			return nil, err
		}
		entry = e
		if err := s.updateDailyStats(card, "rev", 1); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("sched: card %d answered from queue %s", card.ID, card.Queue)
	}

	// After an answer the card's own due is authoritative; a stale parked
	// due would otherwise be restored when the filtered deck empties.
	if card.OriginalDue != 0 {
		card.OriginalDue = 0
	}
	return entry, nil
}

// learnDelays returns the step list the card is walking: lapse steps while
// relearning, new-card steps otherwise.
func learnDelays(card *domain.Card, conf *domain.DeckConfig) []float64 {
	if card.Kind == domain.KindReview || card.Kind == domain.KindRelearning {
		return conf.Lapse.Delays
	}
	return conf.New.Delays
}

// startingLeft packs the full step count with how many of those steps still
// fit before the day cutoff.
func (s *Scheduler) startingLeft(card *domain.Card, conf *domain.DeckConfig, now time.Time) int {
	delays := learnDelays(card, conf)
	tot := len(delays)
	return s.leftToday(delays, tot, now)*1000 + tot
}

// leftToday counts how many of the remaining steps complete before the day
// cutoff, starting the walk at now. At least one step counts.
func (s *Scheduler) leftToday(delays []float64, left int, now time.Time) int {
	if left > len(delays) {
		left = len(delays)
	}
	if left <= 0 {
		return 0
	}
	ok := 0
	t := now
	for i := 0; i < left; i++ {
		t = t.Add(time.Duration(delays[len(delays)-left+i] * float64(time.Minute)))
		if t.After(s.clock.DayCutoff) {
			break
		}
		ok = i
	}
	return ok + 1
}

// delaySeconds returns the length of the current step in seconds. Left
// counts steps remaining from the end of the list.
func delaySeconds(delays []float64, left int) int64 {
	left = left % 1000
	idx := len(delays) - left
	if idx < 0 || idx >= len(delays) {
		if len(delays) > 0 {
			return int64(delays[0] * 60)
		}
		return 60
	}
	return int64(delays[idx] * 60)
}

// answerLearning advances a learning or relearning card by one grade.
func (s *Scheduler) answerLearning(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig, now time.Time) *domain.RevlogEntry {
	delays := learnDelays(card, conf)
	logKind := domain.RevlogLearn
	if card.Kind == domain.KindReview || card.Kind == domain.KindRelearning {
		logKind = domain.RevlogRelearn
	}
	lastLeft := card.Left

	leaving := false
	var delay int64
	switch grade {
	case domain.Easy:
		s.rescheduleAsReview(card, conf, true)
		leaving = true
	case domain.Good:
		if (card.Left%1000)-1 <= 0 {
			s.rescheduleAsReview(card, conf, false)
			leaving = true
		} else {
			delay = s.moveToNextStep(card, delays, now)
		}
	case domain.Hard:
		delay = s.repeatStep(card, delays, now)
	default:
		delay = s.moveToFirstStep(card, conf, now)
		delays = learnDelays(card, conf)
	}

	ivl := -int(delay)
	if leaving {
		ivl = card.Interval
	}
	return &domain.RevlogEntry{
		ID:           now.UnixMilli(),
		CardID:       card.ID,
		USN:          s.usn,
		Grade:        grade,
		Interval:     ivl,
		LastInterval: -int(delaySeconds(delays, lastLeft)),
		Factor:       card.Factor,
		Kind:         logKind,
	}
}

// moveToFirstStep restarts the step walk. A relearning card also re-derives
// its post-lapse interval, so repeated failures keep shrinking it.
func (s *Scheduler) moveToFirstStep(card *domain.Card, conf *domain.DeckConfig, now time.Time) int64 {
	card.Left = s.startingLeft(card, conf, now)
	if card.Kind == domain.KindRelearning {
		card.Interval = lapseInterval(card, conf)
	}
	return s.rescheduleLearnCard(card, delaySeconds(learnDelays(card, conf), card.Left), now)
}

// moveToNextStep consumes one step and schedules the next.
func (s *Scheduler) moveToNextStep(card *domain.Card, delays []float64, now time.Time) int64 {
	left := (card.Left % 1000) - 1
	card.Left = s.leftToday(delays, left, now)*1000 + left
	return s.rescheduleLearnCard(card, delaySeconds(delays, card.Left), now)
}

// repeatStep reschedules the current step without consuming it, waiting
// roughly halfway between this step and the next longer one.
func (s *Scheduler) repeatStep(card *domain.Card, delays []float64, now time.Time) int64 {
	delay1 := delaySeconds(delays, card.Left)
	delay2 := delay1 * 2
	if len(delays) > 1 {
		delay2 = delaySeconds(delays, card.Left-1)
	}
	if delay2 < delay1 {
		delay2 = delay1
	}
	return s.rescheduleLearnCard(card, (delay1+delay2)/2, now)
}

// rescheduleLearnCard places the card after its step delay, in the sub-day
// queue when the step lands before the cutoff and in the day-learning queue
// otherwise. It returns the delay used, in seconds.
func (s *Scheduler) rescheduleLearnCard(card *domain.Card, delay int64, now time.Time) int64 {
	due := now.Unix() + delay
	cutoff := s.clock.DayCutoff.Unix()
	if due < cutoff {
		card.Queue = domain.QueueLearning
		card.Due = due
		s.requeueLearning(card.ID, due)
	} else {
		ahead := (due-cutoff)/86400 + 1
		card.Queue = domain.QueueDayLearning
		card.Due = int64(s.clock.Today) + ahead
	}
	return delay
}

// rescheduleAsReview graduates a card out of its steps. A relearning card
// returns to the interval computed when it lapsed; a learning card gets its
// graduating interval and starting ease.
func (s *Scheduler) rescheduleAsReview(card *domain.Card, conf *domain.DeckConfig, early bool) {
	if card.Kind == domain.KindReview || card.Kind == domain.KindRelearning {
		if early {
			card.Interval++
		}
	} else {
		card.Interval = graduatingInterval(card, conf, early)
		card.Factor = conf.New.InitialFactor
	}
	card.Due = int64(s.clock.Today + card.Interval)
	card.Kind = domain.KindReview
	card.Queue = domain.QueueReview
	card.Left = 0
	if card.InFiltered() {
		s.leaveFiltered(card)
	}
}

func graduatingInterval(card *domain.Card, conf *domain.DeckConfig, early bool) int {
	ideal := conf.New.GraduatingIvl
	if early {
		ideal = conf.New.EasyIvl
	}
	return fuzzedInterval(card, ideal)
}

// leaveFiltered moves a card back to its home deck. The caller has already
// decided the card's due and queue.
func (s *Scheduler) leaveFiltered(card *domain.Card) {
	card.DeckID = card.OriginalDeckID
	card.OriginalDue = 0
	card.OriginalDeckID = 0
}

// answerReview applies a grade to a card in the review queue.
func (s *Scheduler) answerReview(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig, now time.Time, res *AnswerResult) (*domain.RevlogEntry, error) {
	early := card.InFiltered() && card.OriginalDue > int64(s.clock.Today)
	logKind := domain.RevlogReview
	if early {
		logKind = domain.RevlogEarlyReview
	}
	lastIvl := card.Interval

	var delay int64
	if grade == domain.Again {
		d, err := s.rescheduleLapse(card, conf, now, res)
		if err != nil {
			return nil, err
		}
		delay = d
	} else {
		s.rescheduleReview(card, grade, conf, early)
	}

	ivl := card.Interval
	if delay > 0 {
		ivl = -int(delay)
	}
	return &domain.RevlogEntry{
		ID:           now.UnixMilli(),
		CardID:       card.ID,
		USN:          s.usn,
		Grade:        grade,
		Interval:     ivl,
		LastInterval: lastIvl,
		Factor:       card.Factor,
		Kind:         logKind,
	}, nil
}

// rescheduleLapse handles Again on a review card: count the lapse, apply the
// ease penalty, check the leech threshold and either enter relearning steps
// or go straight back on the review schedule. It returns the relearning step
// delay in seconds, or zero when no step was scheduled.
func (s *Scheduler) rescheduleLapse(card *domain.Card, conf *domain.DeckConfig, now time.Time, res *AnswerResult) (int64, error) {
	card.Lapses++
	card.Factor = maxInt(1300, card.Factor-200)

	leeched, err := s.checkLeech(card, conf, res)
	if err != nil {
		return 0, err
	}
	suspended := leeched && card.Queue == domain.QueueSuspended

	if len(conf.Lapse.Delays) > 0 && !suspended {
		card.Kind = domain.KindRelearning
		return s.moveToFirstStep(card, conf, now), nil
	}

	// No relearning steps configured, or the leech suspension wins.
	card.Interval = lapseInterval(card, conf)
	s.rescheduleAsReview(card, conf, false)
	if suspended {
		card.Queue = domain.QueueSuspended
	}
	return 0, nil
}

// lapseInterval is the interval a lapsed card restarts from.
func lapseInterval(card *domain.Card, conf *domain.DeckConfig) int {
	ivl := int(float64(card.Interval) * conf.Lapse.Mult)
	if ivl < conf.Lapse.MinIvl {
		ivl = conf.Lapse.MinIvl
	}
	if ivl < 1 {
		ivl = 1
	}
	return ivl
}

// rescheduleReview grows the interval for Hard/Good/Easy and adjusts the
// ease factor.
func (s *Scheduler) rescheduleReview(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig, early bool) {
	if early {
		card.Interval = s.earlyReviewInterval(card, grade, conf)
	} else {
		card.Interval = s.nextReviewInterval(card, grade, conf, true)
	}
	switch grade {
	case domain.Hard:
		card.Factor = maxInt(1300, card.Factor-150)
	case domain.Easy:
		card.Factor += 150
	}
	card.Due = int64(s.clock.Today + card.Interval)
	if card.InFiltered() {
		s.leaveFiltered(card)
	}
}

// daysLate is how many days overdue the card is, using the parked due while
// the card sits in a filtered deck.
func (s *Scheduler) daysLate(card *domain.Card) int {
	due := card.Due
	if card.InFiltered() {
		due = card.OriginalDue
	}
	if late := s.clock.Today - int(due); late > 0 {
		return late
	}
	return 0
}

// nextReviewInterval computes the on-time interval for a grade. Each grade's
// interval is forced strictly past the previous grade's, so the four answer
// buttons always offer distinct schedules.
func (s *Scheduler) nextReviewInterval(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig, fuzz bool) int {
	delay := s.daysLate(card)
	fct := float64(card.Factor) / 1000

	hardMin := 0
	if conf.Review.HardFactor > 1 {
		hardMin = card.Interval
	}
	hard := s.constrainedInterval(card, float64(card.Interval)*conf.Review.HardFactor, conf, hardMin, fuzz)
	if grade == domain.Hard {
		return hard
	}
	good := s.constrainedInterval(card, float64(card.Interval+delay/2)*fct, conf, hard, fuzz)
	if grade == domain.Good {
		return good
	}
	return s.constrainedInterval(card, float64(card.Interval+delay)*fct*conf.Review.Ease4, conf, good, fuzz)
}

// earlyReviewInterval schedules a review answered ahead of time in a
// filtered deck: credit only the elapsed part of the interval, and shrink
// the easy bonus since the card was not actually due.
func (s *Scheduler) earlyReviewInterval(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig) int {
	elapsed := card.Interval - (int(card.OriginalDue) - s.clock.Today)

	var factor, minNewIvl, easyBonus float64
	easyBonus = 1
	minNewIvl = 1
	switch grade {
	case domain.Hard:
		factor = conf.Review.HardFactor
		minNewIvl = factor / 2
	case domain.Good:
		factor = float64(card.Factor) / 1000
	default:
		factor = float64(card.Factor) / 1000
		easyBonus = conf.Review.Ease4 - (conf.Review.Ease4-1)/2
	}

	ivl := float64(elapsed) * factor
	if ivl < 1 {
		ivl = 1
	}
	if floor := float64(card.Interval) * minNewIvl; ivl < floor {
		ivl = floor
	}
	return s.constrainedInterval(card, ivl*easyBonus, conf, 0, false)
}

// constrainedInterval applies the interval multiplier, optional fuzz, the
// strictly-greater-than-previous rule and the configured maximum.
func (s *Scheduler) constrainedInterval(card *domain.Card, ivl float64, conf *domain.DeckConfig, prev int, fuzz bool) int {
	n := int(ivl * conf.Review.IvlFct)
	if fuzz {
		n = fuzzedInterval(card, maxInt(n, 1))
	}
	n = maxInt(n, prev+1)
	n = maxInt(n, 1)
	if n > conf.Review.MaxIvl {
		n = conf.Review.MaxIvl
	}
	return n
}
