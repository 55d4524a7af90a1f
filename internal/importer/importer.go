// Package importer reconciles note sources with the collection: markdown
// files are parsed into notes, deduplicated by content hash, and new notes
// get a card appended to the end of the new-card ordering. Notes whose
// content disappeared from a source are removed again.
package importer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/decksched/internal/deck"
	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/gitsource"
	"github.com/conorfennell/decksched/internal/knol"
	"github.com/conorfennell/decksched/internal/parser"
	"github.com/conorfennell/decksched/internal/storage"
)

// Service runs import passes over the configured sources.
type Service struct {
	store    *storage.DB
	decks    *deck.Service
	reposDir string
	now      func() time.Time
}

// New builds an importer. reposDir is where git sources are checked out.
func New(store *storage.DB, decks *deck.Service, reposDir string) *Service {
	return &Service{store: store, decks: decks, reposDir: reposDir, now: time.Now}
}

// Report summarizes one reconciliation pass.
type Report struct {
	Parsed  int
	Added   int
	Removed int
	Errors  []error
}

// RunAll reconciles every configured source. Per-source failures are logged
// and skipped so one broken checkout cannot block the rest.
func (s *Service) RunAll() error {
	sources, err := s.store.GetAllSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}
	if err := os.MkdirAll(s.reposDir, 0o755); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("importing source", "id", source.ID, "type", source.Type, "path", source.Path)
		rep, err := s.Run(&source)
		if err != nil {
			slog.Error("source import failed", "path", source.Path, "error", err)
			continue
		}
		slog.Info("source reconciled",
			"path", source.Path,
			"parsed", rep.Parsed, "added", rep.Added, "removed", rep.Removed,
			"errors", len(rep.Errors))
	}
	return nil
}

// Run reconciles a single source.
func (s *Service) Run(source *storage.Source) (*Report, error) {
	scanPath := source.Path
	if source.Type == "git" {
		local, err := gitURLToLocalPath(s.reposDir, source.Path)
		if err != nil {
			return nil, err
		}
		if err := gitsource.Sync(source.Path, local); err != nil {
			return nil, err
		}
		scanPath = local
	}

	targetDeck, err := s.decks.Create(source.Deck)
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	seen := map[string]bool{}

	walkErr := filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		notes, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			rep.Errors = append(rep.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, note := range notes {
			note.Hash = knol.Hash(note)
			rep.Parsed++
			seen[note.Hash] = true

			existing, findErr := s.store.FindNoteByHash(note.Hash)
			if findErr != nil {
				rep.Errors = append(rep.Errors, findErr)
				continue
			}
			if existing != nil {
				continue
			}
			if addErr := s.addNote(&note, source.ID, targetDeck.ID); addErr != nil {
				rep.Errors = append(rep.Errors, addErr)
				continue
			}
			rep.Added++
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", scanPath, walkErr)
	}

	// Notes whose content is gone from the source are orphans; their cards
	// go with them, the revlog stays.
	dbNotes, err := s.store.NotesBySource(source.ID)
	if err != nil {
		return nil, err
	}
	for _, n := range dbNotes {
		if seen[n.Hash] {
			continue
		}
		slog.Info("removing orphaned note", "hash", n.Hash)
		if err := s.store.DeleteNote(n.ID); err != nil {
			rep.Errors = append(rep.Errors, err)
			continue
		}
		rep.Removed++
	}

	if err := s.store.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("failed to update last scanned", "source", source.ID, "error", err)
	}
	return rep, nil
}

// addNote persists a parsed note and appends one card for it at the end of
// the new-card ordering.
func (s *Service) addNote(note *domain.Note, sourceID, deckID int64) error {
	now := s.now()
	note.ID = now.UnixMilli()
	note.Mtime = now.Unix()
	for {
		if existing, err := s.store.GetNote(note.ID); err != nil {
			return err
		} else if existing == nil {
			break
		}
		note.ID++
	}
	if err := s.store.InsertNote(note, sourceID); err != nil {
		return err
	}

	maxDue, err := s.store.MaxNewDue()
	if err != nil {
		return err
	}
	card := &domain.Card{
		ID:     note.ID,
		NoteID: note.ID,
		DeckID: deckID,
		Mtime:  now.Unix(),
		Kind:   domain.KindNew,
		Queue:  domain.QueueNew,
		Due:    maxDue + 1,
		Factor: domain.StartingFactor,
	}
	for {
		if existing, err := s.store.GetCard(card.ID); err != nil {
			return err
		} else if existing == nil {
			break
		}
		card.ID++
	}
	return s.store.InsertCard(card)
}

// gitURLToLocalPath maps a git URL to a stable checkout path under baseDir.
// Both https and scp-style ssh remotes are handled.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
