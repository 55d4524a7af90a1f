package storage

import (
	"fmt"

	"github.com/conorfennell/decksched/internal/domain"
)

// Integrity repair queries. Stale scheduling fields are normalized in place
// rather than surfaced as failures; losing review history is worse than a
// silent fix.

// RepairStaleOriginalDue zeroes original_due on cards that are not parked in
// a filtered deck but still carry a restore value. Returns the number of rows
// repaired.
func (db *DB) RepairStaleOriginalDue(mtime int64, usn int) (int64, error) {
	res, err := db.conn.Exec(
		`UPDATE cards SET odue = 0, mtime = ?, usn = ?
			WHERE odue != 0 AND odid = 0 AND (queue = ? OR kind = ?)`,
		mtime, usn, domain.QueueReview, domain.KindLearning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to repair stale original due: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RepairOrphanedFiltered zeroes original_deck_id/original_due on cards whose
// original_deck_id points outside the known filtered decks. dynIDs is the set
// of existing filtered deck ids.
func (db *DB) RepairOrphanedFiltered(dynIDs []int64, mtime int64, usn int) (int64, error) {
	query := `UPDATE cards SET odid = 0, odue = 0, mtime = ?, usn = ? WHERE odid != 0`
	args := []any{mtime, usn}
	if len(dynIDs) > 0 {
		query += ` AND did NOT IN (` + placeholders(len(dynIDs)) + `)`
		args = append(args, int64Args(dynIDs)...)
	}
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to repair orphaned filtered cards: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// NewCardsOutOfRange lists New-kind cards whose due position overflowed the
// valid ordering range.
func (db *DB) NewCardsOutOfRange() ([]int64, error) {
	return db.listIDs(
		`SELECT id FROM cards WHERE kind = ? AND due > 1000000 ORDER BY due`,
		domain.KindNew,
	)
}

// CardsWithMissingDeck lists cards whose deck row no longer exists.
func (db *DB) CardsWithMissingDeck() ([]int64, error) {
	return db.listIDs(
		`SELECT id FROM cards WHERE did NOT IN (SELECT id FROM decks)`,
	)
}

// MoveCardsToDeck reassigns the given cards to a deck, clearing any filtered
// parking.
func (db *DB) MoveCardsToDeck(ids []int64, deckID int64, mtime int64, usn int) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{deckID, mtime, usn}
	args = append(args, int64Args(ids)...)
	_, err := db.conn.Exec(
		`UPDATE cards SET did = ?, odid = 0, odue = 0, mtime = ?, usn = ?
			WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to move cards to deck %d: %w", deckID, err)
	}
	return nil
}
