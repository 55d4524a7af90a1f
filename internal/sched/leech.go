package sched

import (
	"log/slog"

	"github.com/conorfennell/decksched/internal/domain"
)

// checkLeech fires every time the lapse count reaches a multiple of the
// configured threshold. Depending on the deck configuration the card is
// suspended or its note is only tagged; either way the caller is told so the
// UI can surface it.
func (s *Scheduler) checkLeech(card *domain.Card, conf *domain.DeckConfig, res *AnswerResult) (bool, error) {
	lf := conf.Lapse.LeechFails
	if lf == 0 || card.Lapses == 0 || card.Lapses%lf != 0 {
		return false, nil
	}

	res.Leeched = true
	res.LeechAction = conf.Lapse.LeechAction

	switch conf.Lapse.LeechAction {
	case domain.LeechSuspend:
		card.Queue = domain.QueueSuspended
	case domain.LeechTagOnly:
		note, err := s.store.GetNote(card.NoteID)
		if err != nil {
			return false, err
		}
		if note != nil && !note.HasTag("leech") {
			note.AddTag("leech")
			note.Mtime = s.opts.Now().Unix()
			note.USN = s.usn
			if err := s.store.UpdateNoteTags(note); err != nil {
				return false, err
			}
		}
	}
	slog.Info("card crossed leech threshold",
		"card", card.ID, "lapses", card.Lapses, "action", conf.Lapse.LeechAction)
	return true, nil
}
