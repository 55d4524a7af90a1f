// Package web exposes the review loop and source management over HTTP. All
// scheduler access is serialized behind one mutex; the scheduler itself is
// single-threaded.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/conorfennell/decksched/internal/deck"
	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/importer"
	"github.com/conorfennell/decksched/internal/sched"
	"github.com/conorfennell/decksched/internal/storage"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	decks    *deck.Service
	sched    *sched.Scheduler
	importer *importer.Service
	router   *http.ServeMux

	mu      sync.Mutex
	current *domain.Card // card handed out by /api/next, awaiting an answer
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, decks *deck.Service, scheduler *sched.Scheduler, imp *importer.Service) *Server {
	s := &Server{
		db:       db,
		decks:    decks,
		sched:    scheduler,
		importer: imp,
		router:   http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/api/next", s.handleNext())
	s.router.HandleFunc("/api/answer", s.handleAnswer())
	s.router.HandleFunc("/api/counts", s.handleCounts())
	s.router.HandleFunc("/api/undo", s.handleUndo())
	s.router.HandleFunc("/api/decks", s.handleDecks())
	s.router.HandleFunc("/api/decks/", s.handleDeckAction())
	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/api/cards/", s.handleCardAction())
	s.router.HandleFunc("/api/unbury", s.handleUnbury())
	s.router.HandleFunc("/api/extend", s.handleExtend())
	s.router.HandleFunc("/api/import", s.handleImport())
	s.router.HandleFunc("/api/check", s.handleCheck())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type cardView struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context,omitempty"`
	Queue    string `json:"queue"`
	Kind     string `json:"kind"`
	New      int    `json:"new_count"`
	Learning int    `json:"learning_count"`
	Review   int    `json:"review_count"`

	Intervals *sched.GradePreview `json:"intervals,omitempty"`
}

// handleNext pops the next due card. 200 with the card when one is due, 204
// when the session is finished.
func (s *Server) handleNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.sched.GetNextCard()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if card == nil {
			s.current = nil
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.current = card

		note, err := s.db.GetNote(card.NoteID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		view := cardView{
			ID:    card.ID,
			Queue: card.Queue.String(),
			Kind:  card.Kind.String(),
		}
		if note != nil {
			view.Question = note.Question
			view.Answer = note.Answer
			view.Context = note.Context
		}
		view.New, view.Learning, view.Review = s.sched.Counts()
		if preview, err := s.sched.DescribeNextIntervals(card); err == nil {
			view.Intervals = preview
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// handleAnswer grades the card previously handed out by /api/next.
func (s *Server) handleAnswer() http.HandlerFunc {
	type request struct {
		CardID int64 `json:"card_id"`
		Grade  int   `json:"grade"`
	}
	type response struct {
		Leeched     bool   `json:"leeched"`
		LeechAction string `json:"leech_action,omitempty"`
		New         int    `json:"new_count"`
		Learning    int    `json:"learning_count"`
		Review      int    `json:"review_count"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current == nil || s.current.ID != req.CardID {
			writeError(w, http.StatusConflict, errors.New("card is not the one on display"))
			return
		}
		res, err := s.sched.AnswerCard(s.current, domain.Grade(req.Grade))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sched.ErrInvalidGrade) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		s.current = nil

		out := response{Leeched: res.Leeched}
		if res.Leeched {
			out.LeechAction = res.LeechAction.String()
		}
		out.New, out.Learning, out.Review = s.sched.Counts()
		writeJSON(w, http.StatusOK, out)
	}
}

// handleCounts returns the remaining counts for the active decks.
func (s *Server) handleCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.sched.Reset(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		n, l, rev := s.sched.Counts()
		writeJSON(w, http.StatusOK, map[string]int{
			"new": n, "learning": l, "review": rev,
		})
	}
}

// handleUndo reverts the last answer.
func (s *Server) handleUndo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		card, err := s.sched.Undo()
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sched.ErrNothingToUndo) {
				status = http.StatusConflict
			}
			writeError(w, status, err)
			return
		}
		s.current = nil
		writeJSON(w, http.StatusOK, map[string]int64{"card_id": card.ID})
	}
}

type deckView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Filtered bool   `json:"filtered"`
	Current  bool   `json:"current"`
	New      int    `json:"new"`
	Learn    int    `json:"learn"`
	Review   int    `json:"review"`
}

// handleDecks lists decks on GET, creates one on POST.
func (s *Server) handleDecks() http.HandlerFunc {
	type request struct {
		Name string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			tree, err := s.sched.DueTree()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			out := make([]deckView, 0, len(tree))
			for _, row := range tree {
				out = append(out, deckView{
					ID:       row.DeckID,
					Name:     row.Name,
					Filtered: row.Filtered,
					Current:  row.DeckID == s.decks.Current(),
					New:      row.New,
					Learn:    row.Learn,
					Review:   row.Review,
				})
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodPost:
			var req request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			d, err := s.decks.Create(req.Name)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, deckView{ID: d.ID, Name: d.Name})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleDeckAction routes /api/decks/{id}/{select|rebuild|empty|delete}.
func (s *Server) handleDeckAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/decks/")
		idStr, action, _ := strings.Cut(rest, "/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid deck ID", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		switch action {
		case "select":
			err = s.decks.Select(id)
		case "rebuild":
			var n int
			n, err = s.sched.RebuildFiltered(id)
			if err == nil {
				writeJSON(w, http.StatusOK, map[string]int{"gathered": n})
				return
			}
		case "empty":
			err = s.sched.EmptyFilteredDeck(id)
		case "delete":
			err = s.sched.RemoveDeck(id)
			if err == nil {
				s.current = nil
			}
		default:
			http.Error(w, "Unknown deck action", http.StatusNotFound)
			return
		}
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sched.ErrNotFiltered) || errors.Is(err, deck.ErrNoDeck) ||
				errors.Is(err, sched.ErrDefaultDeck) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSources lists sources on GET, adds one on POST.
func (s *Server) handleSources() http.HandlerFunc {
	type request struct {
		Path string `json:"path"`
		Deck string `json:"deck"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sources, err := s.db.GetAllSources()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, sources)
		case http.MethodPost:
			var req request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			if req.Path == "" {
				writeError(w, http.StatusBadRequest, errors.New("path cannot be empty"))
				return
			}
			if req.Deck == "" {
				req.Deck = "Default"
			}
			existing, err := s.db.FindSourceByPath(req.Path)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if existing != nil {
				writeError(w, http.StatusConflict, errors.New("source is already registered"))
				return
			}
			sourceType := "local"
			if strings.HasSuffix(req.Path, ".git") || strings.HasPrefix(req.Path, "git@") ||
				strings.HasPrefix(req.Path, "https://") {
				sourceType = "git"
			}
			id, err := s.db.InsertSource(req.Path, sourceType, req.Deck)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleDeleteSource removes a source; its notes stay but detach.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}
		if err := s.db.DeleteSource(id); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleCardAction routes /api/cards/{suspend|unsuspend|bury|forget|
// reposition|reschedule} over a list of card ids.
func (s *Server) handleCardAction() http.HandlerFunc {
	type request struct {
		CardIDs []int64 `json:"card_ids"`

		// Reposition only.
		Start   int64 `json:"start"`
		Step    int64 `json:"step"`
		Shuffle bool  `json:"shuffle"`
		Shift   bool  `json:"shift"`

		// Reschedule only.
		MinDays int `json:"min_days"`
		MaxDays int `json:"max_days"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		action := strings.TrimPrefix(r.URL.Path, "/api/cards/")
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(req.CardIDs) == 0 {
			http.Error(w, "No card IDs given", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		var err error
		switch action {
		case "suspend":
			err = s.sched.Suspend(req.CardIDs...)
		case "unsuspend":
			err = s.sched.Unsuspend(req.CardIDs...)
		case "bury":
			err = s.sched.Bury(req.CardIDs...)
		case "forget":
			err = s.sched.Forget(req.CardIDs)
		case "reposition":
			err = s.sched.Reposition(req.CardIDs, req.Start, req.Step, req.Shuffle, req.Shift)
		case "reschedule":
			err = s.sched.Reschedule(req.CardIDs, req.MinDays, req.MaxDays)
		default:
			http.Error(w, "Unknown card action", http.StatusNotFound)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.current = nil
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleUnbury returns every buried card to its queue.
func (s *Server) handleUnbury() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.sched.UnburyAll(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.current = nil
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleExtend raises today's limits for the current deck subtree.
func (s *Server) handleExtend() http.HandlerFunc {
	type request struct {
		New    int `json:"new"`
		Review int `json:"review"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.sched.ExtendLimits(req.New, req.Review); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.sched.Reset(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		n, l, rev := s.sched.Counts()
		writeJSON(w, http.StatusOK, map[string]int{
			"new": n, "learning": l, "review": rev,
		})
	}
}

// handleImport runs a reconciliation pass over every source, in the
// foreground so the caller sees the result.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.importer.RunAll(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.sched.Reset(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		n, l, rev := s.sched.Counts()
		writeJSON(w, http.StatusOK, map[string]int{
			"new": n, "learning": l, "review": rev,
		})
	}
}

// handleCheck runs the integrity pass and reports what was repaired.
func (s *Server) handleCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		rep, err := s.sched.CheckIntegrity()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
