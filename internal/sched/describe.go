package sched

import (
	"fmt"

	"github.com/conorfennell/decksched/internal/domain"
)

// GradePreview carries the schedule each answer button would produce,
// formatted for display.
type GradePreview struct {
	Again string `json:"again"`
	Hard  string `json:"hard"`
	Good  string `json:"good"`
	Easy  string `json:"easy"`
}

// DescribeNextIntervals computes the prospective delay behind each grade
// without touching the card.
func (s *Scheduler) DescribeNextIntervals(card *domain.Card) (*GradePreview, error) {
	conf, err := s.decks.ConfFor(card.HomeDeckID())
	if err != nil {
		return nil, err
	}
	p := &GradePreview{}
	for grade, out := range map[domain.Grade]*string{
		domain.Again: &p.Again,
		domain.Hard:  &p.Hard,
		domain.Good:  &p.Good,
		domain.Easy:  &p.Easy,
	} {
		secs, err := s.nextIntervalSecs(card, grade, conf)
		if err != nil {
			return nil, err
		}
		*out = formatTimeSpan(secs)
	}
	return p, nil
}

// nextIntervalSecs is the delay in seconds an answer would schedule.
func (s *Scheduler) nextIntervalSecs(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig) (int64, error) {
	if preview, err := s.previewing(card); err != nil {
		return 0, err
	} else if preview {
		if grade == domain.Again {
			d, err := s.decks.Get(card.DeckID)
			if err != nil {
				return 0, err
			}
			return int64(d.PreviewDelay) * 60, nil
		}
		return 0, nil
	}

	switch card.Queue {
	case domain.QueueNew, domain.QueueLearning, domain.QueueDayLearning:
		return s.nextLearnIntervalSecs(card, grade, conf), nil
	}

	// Review cards.
	if grade == domain.Again {
		if len(conf.Lapse.Delays) > 0 {
			return int64(conf.Lapse.Delays[0] * 60), nil
		}
		return int64(lapseInterval(card, conf)) * 86400, nil
	}
	if card.InFiltered() && card.OriginalDue > int64(s.clock.Today) {
		return int64(s.earlyReviewInterval(card, grade, conf)) * 86400, nil
	}
	return int64(s.nextReviewInterval(card, grade, conf, false)) * 86400, nil
}

func (s *Scheduler) nextLearnIntervalSecs(card *domain.Card, grade domain.Grade, conf *domain.DeckConfig) int64 {
	delays := learnDelays(card, conf)
	left := card.Left
	if card.Queue == domain.QueueNew {
		left = len(delays)*1000 + len(delays)
	}

	switch grade {
	case domain.Again:
		return delaySeconds(delays, len(delays))
	case domain.Hard:
		delay1 := delaySeconds(delays, left)
		delay2 := delay1 * 2
		if len(delays) > 1 {
			delay2 = delaySeconds(delays, left-1)
		}
		if delay2 < delay1 {
			delay2 = delay1
		}
		return (delay1 + delay2) / 2
	case domain.Easy:
		if card.Kind == domain.KindReview || card.Kind == domain.KindRelearning {
			return int64(card.Interval+1) * 86400
		}
		return int64(conf.New.EasyIvl) * 86400
	default:
		remaining := (left % 1000) - 1
		if remaining <= 0 {
			if card.Kind == domain.KindReview || card.Kind == domain.KindRelearning {
				return int64(card.Interval) * 86400
			}
			return int64(conf.New.GraduatingIvl) * 86400
		}
		return delaySeconds(delays, remaining)
	}
}

// formatTimeSpan renders a delay the way the answer buttons show it: whole
// units, largest first.
func formatTimeSpan(secs int64) string {
	switch {
	case secs == 0:
		return "now"
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", (secs+30)/60)
	case secs < 86400:
		return fmt.Sprintf("%dh", (secs+1800)/3600)
	case secs < 86400*30:
		return fmt.Sprintf("%dd", (secs+43200)/86400)
	case secs < 86400*365:
		return fmt.Sprintf("%.1fmo", float64(secs)/(86400*30))
	default:
		return fmt.Sprintf("%.1fy", float64(secs)/(86400*365))
	}
}
