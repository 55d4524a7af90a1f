// Package deck maintains the deck tree, configuration groups and per-day
// counters in memory, backed by the storage layer.
package deck

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/conorfennell/decksched/internal/domain"
	"github.com/conorfennell/decksched/internal/storage"
)

// ErrNoDeck is returned when a deck id or name resolves to nothing.
var ErrNoDeck = errors.New("deck: no such deck")

// ErrNoConfig is returned when a deck references a missing config group.
var ErrNoConfig = errors.New("deck: no such config group")

// Service loads every deck and configuration group at construction and keeps
// them in memory; decks are few and small. Mutated decks are tracked as dirty
// so the scheduler can persist them atomically with card writes.
type Service struct {
	store   *storage.DB
	decks   map[int64]*domain.Deck
	byName  map[string]*domain.Deck
	configs map[int64]*domain.DeckConfig
	dirty   map[int64]bool
	current int64
}

// NewService loads the deck tree from the store.
func NewService(store *storage.DB) (*Service, error) {
	decks, err := store.AllDecks()
	if err != nil {
		return nil, err
	}
	configs, err := store.AllDeckConfigs()
	if err != nil {
		return nil, err
	}
	meta, err := store.GetMeta()
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:   store,
		decks:   make(map[int64]*domain.Deck, len(decks)),
		byName:  make(map[string]*domain.Deck, len(decks)),
		configs: make(map[int64]*domain.DeckConfig, len(configs)),
		dirty:   make(map[int64]bool),
		current: meta.CurrentDeck,
	}
	for _, d := range decks {
		s.decks[d.ID] = d
		s.byName[d.Name] = d
	}
	for _, c := range configs {
		s.configs[c.ID] = c
	}
	if _, ok := s.decks[s.current]; !ok {
		s.current = 1
	}
	return s, nil
}

// Get returns the deck with the given id.
func (s *Service) Get(id int64) (*domain.Deck, error) {
	d, ok := s.decks[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNoDeck, id)
	}
	return d, nil
}

// ByName returns the deck with the given full name.
func (s *Service) ByName(name string) (*domain.Deck, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// All returns every deck sorted by name.
func (s *Service) All() []*domain.Deck {
	out := make([]*domain.Deck, 0, len(s.decks))
	for _, d := range s.decks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parents returns the ancestors of a deck ordered root-first.
func (s *Service) Parents(id int64) ([]*domain.Deck, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(d.Name, domain.NameSeparator)
	var out []*domain.Deck
	for i := 1; i < len(parts); i++ {
		name := strings.Join(parts[:i], domain.NameSeparator)
		if p, ok := s.byName[name]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Children returns every descendant of a deck, sorted by name.
func (s *Service) Children(id int64) ([]*domain.Deck, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	var out []*domain.Deck
	for _, cand := range s.decks {
		if domain.IsAncestorName(d.Name, cand.Name) {
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Current returns the selected deck id.
func (s *Service) Current() int64 {
	return s.current
}

// Select makes the given deck current and persists the selection.
func (s *Service) Select(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.current = id
	meta, err := s.store.GetMeta()
	if err != nil {
		return err
	}
	meta.CurrentDeck = id
	return s.store.SaveMeta(meta)
}

// Active returns the current deck followed by its descendants, the order the
// queue builder walks decks in.
func (s *Service) Active() []int64 {
	ids := []int64{s.current}
	children, err := s.Children(s.current)
	if err != nil {
		return ids
	}
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	return ids
}

// ConfFor resolves the configuration group of a deck. Filtered decks do not
// reference a group; they fall back to the default so step delays and leech
// settings still resolve for cards answered in place.
func (s *Service) ConfFor(deckID int64) (*domain.DeckConfig, error) {
	d, err := s.Get(deckID)
	if err != nil {
		return nil, err
	}
	confID := d.ConfID
	if d.Dyn {
		confID = 1
	}
	conf, ok := s.configs[confID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d (deck %q)", ErrNoConfig, confID, d.Name)
	}
	return conf, nil
}

// Config returns a configuration group by id.
func (s *Service) Config(id int64) (*domain.DeckConfig, error) {
	conf, ok := s.configs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNoConfig, id)
	}
	return conf, nil
}

// MarkDirty records that a deck was mutated and must be persisted with the
// next card/revlog write.
func (s *Service) MarkDirty(id int64) {
	s.dirty[id] = true
}

// Dirty returns the decks pending persistence.
func (s *Service) Dirty() []*domain.Deck {
	out := make([]*domain.Deck, 0, len(s.dirty))
	for id := range s.dirty {
		if d, ok := s.decks[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// ClearDirty forgets the dirty set after a successful commit.
func (s *Service) ClearDirty() {
	s.dirty = make(map[int64]bool)
}

// FlushDirty persists dirty decks outside an answer transaction.
func (s *Service) FlushDirty() error {
	for _, d := range s.Dirty() {
		d.Mtime = time.Now().Unix()
		if err := s.store.SaveDeck(d); err != nil {
			return err
		}
	}
	s.ClearDirty()
	return nil
}

// Create adds a standard deck under the given "::"-separated name, creating
// missing ancestors along the way, and returns it. Creating an existing deck
// returns the existing one.
func (s *Service) Create(name string) (*domain.Deck, error) {
	if err := domain.ValidateDeckName(name); err != nil {
		return nil, err
	}
	if d, ok := s.byName[name]; ok {
		return d, nil
	}

	parts := strings.Split(name, domain.NameSeparator)
	var deck *domain.Deck
	for i := 1; i <= len(parts); i++ {
		prefix := strings.Join(parts[:i], domain.NameSeparator)
		if d, ok := s.byName[prefix]; ok {
			deck = d
			continue
		}
		d := &domain.Deck{
			ID:        s.newID(),
			Name:      prefix,
			ConfID:    1,
			Mtime:     time.Now().Unix(),
			ExtendNew: 10,
			ExtendRev: 50,
			Resched:   true,
		}
		if err := s.store.InsertDeck(d); err != nil {
			return nil, err
		}
		s.decks[d.ID] = d
		s.byName[d.Name] = d
		deck = d
	}
	return deck, nil
}

// CreateFiltered adds a filtered deck with the given gathering terms.
func (s *Service) CreateFiltered(name string, terms []domain.FilterTerm) (*domain.Deck, error) {
	if err := domain.ValidateDeckName(name); err != nil {
		return nil, err
	}
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("deck: deck %q already exists", name)
	}
	d := &domain.Deck{
		ID:           s.newID(),
		Name:         name,
		Dyn:          true,
		Mtime:        time.Now().Unix(),
		Terms:        terms,
		Resched:      true,
		PreviewDelay: 10,
	}
	if err := s.store.InsertDeck(d); err != nil {
		return nil, err
	}
	s.decks[d.ID] = d
	s.byName[d.Name] = d
	return d, nil
}

// Delete removes a deck row. The caller is responsible for relocating or
// restoring its cards first.
func (s *Service) Delete(id int64) error {
	d, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDeck(id); err != nil {
		return err
	}
	delete(s.decks, id)
	delete(s.byName, d.Name)
	delete(s.dirty, id)
	if s.current == id {
		s.current = 1
	}
	return nil
}

// DynIDs returns the ids of every filtered deck.
func (s *Service) DynIDs() []int64 {
	var out []int64
	for id, d := range s.decks {
		if d.Dyn {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// newID allocates a millisecond-timestamp deck id, bumped past collisions.
func (s *Service) newID() int64 {
	id := time.Now().UnixMilli()
	for {
		if _, taken := s.decks[id]; !taken {
			return id
		}
		id++
	}
}
