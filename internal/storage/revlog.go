package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/decksched/internal/domain"
)

func insertRevlog(tx *sql.Tx, entry *domain.RevlogEntry) (int64, error) {
	// The id doubles as the answer timestamp; bump past collisions so two
	// answers within the same millisecond both land.
	id := entry.ID
	for {
		var exists int
		err := tx.QueryRow(`SELECT count(*) FROM revlog WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("failed to check revlog id: %w", err)
		}
		if exists == 0 {
			break
		}
		id++
	}
	_, err := tx.Exec(
		`INSERT INTO revlog (id, cid, usn, grade, ivl, last_ivl, factor, time_ms, kind)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.CardID, entry.USN, entry.Grade, entry.Interval,
		entry.LastInterval, entry.Factor, entry.TimeTakenMs, entry.Kind,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append revlog entry: %w", err)
	}
	return id, nil
}

// CommitAnswer persists one answered card: the card's scheduling columns, the
// appended revlog entry and every deck whose daily counters changed, in a
// single transaction. It returns the revlog row id actually used. A nil
// entry skips the log append; preview answers are not recorded.
func (db *DB) CommitAnswer(card *domain.Card, entry *domain.RevlogEntry, dirtyDecks []*domain.Deck) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin answer commit: %w", err)
	}
	defer tx.Rollback()

	if err := updateCardSched(tx, card); err != nil {
		return 0, err
	}
	var logID int64
	if entry != nil {
		logID, err = insertRevlog(tx, entry)
		if err != nil {
			return 0, err
		}
	}
	for _, d := range dirtyDecks {
		if err := saveDeck(tx, d); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit answer: %w", err)
	}
	return logID, nil
}

// CommitUndo reverts one answer: restores the card snapshot, deletes the
// revlog row and writes back the decks whose counters were rolled back.
func (db *DB) CommitUndo(card *domain.Card, revlogID int64, dirtyDecks []*domain.Deck) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin undo commit: %w", err)
	}
	defer tx.Rollback()

	if err := updateCardSched(tx, card); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM revlog WHERE id = ?`, revlogID); err != nil {
		return fmt.Errorf("failed to delete revlog entry %d: %w", revlogID, err)
	}
	for _, d := range dirtyDecks {
		if err := saveDeck(tx, d); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit undo: %w", err)
	}
	return nil
}

// RevlogForCard returns a card's review history, oldest first.
func (db *DB) RevlogForCard(cardID int64) ([]*domain.RevlogEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, cid, usn, grade, ivl, last_ivl, factor, time_ms, kind
			FROM revlog WHERE cid = ? ORDER BY id`, cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revlog for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var entries []*domain.RevlogEntry
	for rows.Next() {
		var e domain.RevlogEntry
		err := rows.Scan(&e.ID, &e.CardID, &e.USN, &e.Grade, &e.Interval,
			&e.LastInterval, &e.Factor, &e.TimeTakenMs, &e.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revlog row: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
