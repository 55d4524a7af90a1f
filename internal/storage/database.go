// Package storage persists cards, notes, decks and the review log in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Meta is the single-row collection header.
type Meta struct {
	Created      time.Time
	SchedVersion int
	USN          int
	CurrentDeck  int64
	LastUnburied int // scheduler day of the last day-rollover unburial
}

// Open creates a new database connection and ensures the schema is up to date.
// A fresh database is bootstrapped with the collection row, the default deck
// and the default configuration group.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// WAL for concurrent readers, foreign keys for note/card integrity.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.bootstrap(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// bootstrap inserts the collection row, default config and default deck on
// first open.
func (db *DB) bootstrap() error {
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM col`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check collection row: %w", err)
	}
	if count > 0 {
		return nil
	}

	// Creation time is normalized to the start of the current day so that
	// day numbering is stable regardless of the hour the file was created.
	now := time.Now()
	crt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if _, err := db.conn.Exec(
		`INSERT INTO col (id, crt, ver, usn, current_deck, last_unburied) VALUES (1, ?, 2, 0, 1, 0)`,
		crt.Unix(),
	); err != nil {
		return fmt.Errorf("failed to insert collection row: %w", err)
	}
	if err := db.insertDefaultConfig(); err != nil {
		return err
	}
	if err := db.insertDefaultDeck(); err != nil {
		return err
	}
	return nil
}

// GetMeta reads the collection header.
func (db *DB) GetMeta() (*Meta, error) {
	var crt int64
	m := &Meta{}
	err := db.conn.QueryRow(
		`SELECT crt, ver, usn, current_deck, last_unburied FROM col WHERE id = 1`,
	).Scan(&crt, &m.SchedVersion, &m.USN, &m.CurrentDeck, &m.LastUnburied)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection meta: %w", err)
	}
	m.Created = time.Unix(crt, 0)
	return m, nil
}

// SaveMeta writes back the mutable parts of the collection header.
func (db *DB) SaveMeta(m *Meta) error {
	_, err := db.conn.Exec(
		`UPDATE col SET ver = ?, usn = ?, current_deck = ?, last_unburied = ? WHERE id = 1`,
		m.SchedVersion, m.USN, m.CurrentDeck, m.LastUnburied,
	)
	if err != nil {
		return fmt.Errorf("failed to save collection meta: %w", err)
	}
	return nil
}
