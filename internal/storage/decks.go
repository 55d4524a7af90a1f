package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/conorfennell/decksched/internal/domain"
)

const deckColumns = `id, name, conf_id, dyn, desc, collapsed, mtime, usn,
	new_today_day, new_today_count, rev_today_day, rev_today_count,
	lrn_today_day, lrn_today_count, time_today_day, time_today_count,
	extend_new, extend_rev, terms, resched, preview_delay`

func scanDeck(row rowScanner) (*domain.Deck, error) {
	var d domain.Deck
	var dyn, collapsed, resched int
	var terms string
	err := row.Scan(
		&d.ID, &d.Name, &d.ConfID, &dyn, &d.Desc, &collapsed, &d.Mtime, &d.USN,
		&d.NewToday.Day, &d.NewToday.Count, &d.RevToday.Day, &d.RevToday.Count,
		&d.LrnToday.Day, &d.LrnToday.Count, &d.TimeToday.Day, &d.TimeToday.Count,
		&d.ExtendNew, &d.ExtendRev, &terms, &resched, &d.PreviewDelay,
	)
	if err != nil {
		return nil, err
	}
	d.Dyn = dyn != 0
	d.Collapsed = collapsed != 0
	d.Resched = resched != 0
	if terms != "" {
		if err := json.Unmarshal([]byte(terms), &d.Terms); err != nil {
			return nil, fmt.Errorf("failed to decode terms of deck %d: %w", d.ID, err)
		}
	}
	return &d, nil
}

func deckArgs(d *domain.Deck) ([]any, error) {
	terms := ""
	if len(d.Terms) > 0 {
		raw, err := json.Marshal(d.Terms)
		if err != nil {
			return nil, fmt.Errorf("failed to encode terms of deck %d: %w", d.ID, err)
		}
		terms = string(raw)
	}
	return []any{
		d.ID, d.Name, d.ConfID, boolInt(d.Dyn), d.Desc, boolInt(d.Collapsed), d.Mtime, d.USN,
		d.NewToday.Day, d.NewToday.Count, d.RevToday.Day, d.RevToday.Count,
		d.LrnToday.Day, d.LrnToday.Count, d.TimeToday.Day, d.TimeToday.Count,
		d.ExtendNew, d.ExtendRev, terms, boolInt(d.Resched), d.PreviewDelay,
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AllDecks returns every deck row.
func (db *DB) AllDecks() ([]*domain.Deck, error) {
	rows, err := db.conn.Query(`SELECT ` + deckColumns + ` FROM decks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []*domain.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// InsertDeck inserts a deck row.
func (db *DB) InsertDeck(d *domain.Deck) error {
	args, err := deckArgs(d)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO decks (`+deckColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck %q: %w", d.Name, err)
	}
	return nil
}

func saveDeck(exec interface {
	Exec(query string, args ...any) (sql.Result, error)
}, d *domain.Deck) error {
	args, err := deckArgs(d)
	if err != nil {
		return err
	}
	_, err = exec.Exec(
		`INSERT OR REPLACE INTO decks (`+deckColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to save deck %q: %w", d.Name, err)
	}
	return nil
}

// SaveDeck writes back a deck row, inserting it if missing.
func (db *DB) SaveDeck(d *domain.Deck) error {
	return saveDeck(db.conn, d)
}

// DeleteDeck removes a deck row.
func (db *DB) DeleteDeck(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM decks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete deck %d: %w", id, err)
	}
	return nil
}

func (db *DB) insertDefaultDeck() error {
	d := &domain.Deck{ID: 1, Name: "Default", ConfID: 1, ExtendNew: 10, ExtendRev: 50, Resched: true, PreviewDelay: 10}
	return db.InsertDeck(d)
}

// AllDeckConfigs returns every configuration group.
func (db *DB) AllDeckConfigs() ([]*domain.DeckConfig, error) {
	rows, err := db.conn.Query(`SELECT id, name, config, mtime, usn FROM deck_config`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deck configs: %w", err)
	}
	defer rows.Close()

	var configs []*domain.DeckConfig
	for rows.Next() {
		conf, err := scanDeckConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, conf)
	}
	return configs, rows.Err()
}

func scanDeckConfig(row rowScanner) (*domain.DeckConfig, error) {
	var (
		id, mtime int64
		usn       int
		name, raw string
	)
	if err := row.Scan(&id, &name, &raw, &mtime, &usn); err != nil {
		return nil, fmt.Errorf("failed to scan deck config row: %w", err)
	}
	var body struct {
		New      domain.NewConfig    `json:"new"`
		Lapse    domain.LapseConfig  `json:"lapse"`
		Review   domain.ReviewConfig `json:"rev"`
		MaxTaken int                 `json:"maxTaken"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("failed to decode deck config %d: %w", id, err)
	}
	return &domain.DeckConfig{
		ID: id, Name: name,
		New: body.New, Lapse: body.Lapse, Review: body.Review,
		MaxTaken: body.MaxTaken, Mtime: mtime, USN: usn,
	}, nil
}

// SaveDeckConfig writes back a configuration group, inserting it if missing.
func (db *DB) SaveDeckConfig(conf *domain.DeckConfig) error {
	body := struct {
		New      domain.NewConfig    `json:"new"`
		Lapse    domain.LapseConfig  `json:"lapse"`
		Review   domain.ReviewConfig `json:"rev"`
		MaxTaken int                 `json:"maxTaken"`
	}{conf.New, conf.Lapse, conf.Review, conf.MaxTaken}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode deck config %q: %w", conf.Name, err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO deck_config (id, name, config, mtime, usn) VALUES (?,?,?,?,?)`,
		conf.ID, conf.Name, string(raw), conf.Mtime, conf.USN,
	)
	if err != nil {
		return fmt.Errorf("failed to save deck config %q: %w", conf.Name, err)
	}
	return nil
}

func (db *DB) insertDefaultConfig() error {
	return db.SaveDeckConfig(domain.DefaultDeckConfig(1, "Default"))
}
