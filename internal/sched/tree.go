package sched

// DeckCounts is one row of the deck listing: today's due work for a single
// deck, not including its descendants.
type DeckCounts struct {
	DeckID   int64  `json:"deck_id"`
	Name     string `json:"name"`
	Filtered bool   `json:"filtered"`
	New      int    `json:"new"`
	Learn    int    `json:"learn"`
	Review   int    `json:"review"`
}

// DueTree reports per-deck due counts for every deck, new and review clamped
// to the remaining per-day allowance.
func (s *Scheduler) DueTree() ([]DeckCounts, error) {
	if !s.haveQueues {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}
	cutoff := s.opts.Now().Unix() + int64(s.opts.LearnAheadSecs)

	var out []DeckCounts
	for _, d := range s.decks.All() {
		row := DeckCounts{DeckID: d.ID, Name: d.Name, Filtered: d.Dyn}

		newLim, err := s.deckNewLimit(d.ID)
		if err != nil {
			return nil, err
		}
		if newLim > reportLimit {
			newLim = reportLimit
		}
		if newLim > 0 {
			n, err := s.store.CountNewInDeck(d.ID, newLim)
			if err != nil {
				return nil, err
			}
			row.New = n
		}

		revLim, err := s.deckRevLimit(d.ID)
		if err != nil {
			return nil, err
		}
		if revLim > reportLimit {
			revLim = reportLimit
		}
		if revLim > 0 {
			n, err := s.store.CountReviewInDeck(d.ID, s.clock.Today, revLim)
			if err != nil {
				return nil, err
			}
			row.Review = n
		}

		lrn, err := s.store.CountLearning([]int64{d.ID}, cutoff, s.clock.Today)
		if err != nil {
			return nil, err
		}
		row.Learn = lrn

		out = append(out, row)
	}
	return out, nil
}
