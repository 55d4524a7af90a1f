package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/conorfennell/decksched/internal/domain"
)

const cardColumns = `id, nid, did, ord, mtime, usn, kind, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	err := row.Scan(
		&c.ID, &c.NoteID, &c.DeckID, &c.Ord, &c.Mtime, &c.USN,
		&c.Kind, &c.Queue, &c.Due, &c.Interval, &c.Factor,
		&c.Reps, &c.Lapses, &c.Left, &c.OriginalDue, &c.OriginalDeckID,
		&c.Flags, &c.Data,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// placeholders returns "?,?,..." with n markers for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// GetCard retrieves a card by id. Returns nil if the card does not exist.
func (db *DB) GetCard(id int64) (*domain.Card, error) {
	row := db.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return c, nil
}

// GetCards retrieves the given cards; missing ids are silently skipped.
func (db *DB) GetCards(ids []int64) ([]*domain.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := db.conn.Query(query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// InsertCard inserts a new card row.
func (db *DB) InsertCard(c *domain.Card) error {
	_, err := db.conn.Exec(
		`INSERT INTO cards (`+cardColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.NoteID, c.DeckID, c.Ord, c.Mtime, c.USN,
		c.Kind, c.Queue, c.Due, c.Interval, c.Factor,
		c.Reps, c.Lapses, c.Left, c.OriginalDue, c.OriginalDeckID,
		c.Flags, c.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %d: %w", c.ID, err)
	}
	return nil
}

func updateCardSched(exec interface {
	Exec(query string, args ...any) (sql.Result, error)
}, c *domain.Card) error {
	_, err := exec.Exec(
		`UPDATE cards SET
			mtime=?, usn=?, kind=?, queue=?, due=?, ivl=?, factor=?, reps=?,
			lapses=?, left=?, odue=?, odid=?, did=?
		WHERE id = ?`,
		c.Mtime, c.USN, c.Kind, c.Queue, c.Due, c.Interval, c.Factor, c.Reps,
		c.Lapses, c.Left, c.OriginalDue, c.OriginalDeckID, c.DeckID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", c.ID, err)
	}
	return nil
}

// UpdateCardSched writes back the scheduling columns of a card.
func (db *DB) UpdateCardSched(c *domain.Card) error {
	return updateCardSched(db.conn, c)
}

// DeleteCards removes the given card rows.
func (db *DB) DeleteCards(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.conn.Exec(
		`DELETE FROM cards WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cards: %w", err)
	}
	return nil
}

// NewCardIDs lists up to limit New-queue cards of a deck in (due, ord) order.
func (db *DB) NewCardIDs(deckID int64, limit int) ([]int64, error) {
	return db.listIDs(
		`SELECT id FROM cards WHERE did = ? AND queue = ? ORDER BY due, ord LIMIT ?`,
		deckID, domain.QueueNew, limit,
	)
}

// ReviewCardIDs lists up to limit Review-queue cards of a deck due on or
// before maxDay, ordered by due day.
func (db *DB) ReviewCardIDs(deckID int64, maxDay int, limit int) ([]int64, error) {
	return db.listIDs(
		`SELECT id FROM cards WHERE did = ? AND queue = ? AND due <= ? ORDER BY due LIMIT ?`,
		deckID, domain.QueueReview, maxDay, limit,
	)
}

// DueCard pairs a card id with its due value for queue bookkeeping.
type DueCard struct {
	ID  int64
	Due int64
}

// LearningDueCards lists sub-day learning and preview cards across the given
// decks due before the cutoff timestamp, ordered soonest first.
func (db *DB) LearningDueCards(deckIDs []int64, cutoff int64, limit int) ([]DueCard, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	args := int64Args(deckIDs)
	args = append(args, domain.QueueLearning, domain.QueuePreview, cutoff, limit)
	rows, err := db.conn.Query(
		`SELECT id, due FROM cards WHERE did IN (`+placeholders(len(deckIDs))+`)
			AND queue IN (?, ?) AND due < ? ORDER BY due LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list learning cards: %w", err)
	}
	defer rows.Close()

	var out []DueCard
	for rows.Next() {
		var dc DueCard
		if err := rows.Scan(&dc.ID, &dc.Due); err != nil {
			return nil, fmt.Errorf("failed to scan learning card: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// DayLearningCardIDs lists day-granularity learning cards of one deck due on
// or before today.
func (db *DB) DayLearningCardIDs(deckID int64, today int, limit int) ([]int64, error) {
	return db.listIDs(
		`SELECT id FROM cards WHERE did = ? AND queue = ? AND due <= ? ORDER BY due LIMIT ?`,
		deckID, domain.QueueDayLearning, today, limit,
	)
}

func (db *DB) listIDs(query string, args ...any) ([]int64, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list card ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountNewInDeck counts New-queue cards in a deck, capped at lim.
func (db *DB) CountNewInDeck(deckID int64, lim int) (int, error) {
	return db.countCapped(
		`SELECT count(*) FROM (SELECT 1 FROM cards WHERE did = ? AND queue = ? LIMIT ?)`,
		deckID, domain.QueueNew, lim,
	)
}

// CountReviewInDeck counts Review-queue cards in a deck due on or before
// maxDay, capped at lim.
func (db *DB) CountReviewInDeck(deckID int64, maxDay int, lim int) (int, error) {
	return db.countCapped(
		`SELECT count(*) FROM (SELECT 1 FROM cards WHERE did = ? AND queue = ? AND due <= ? LIMIT ?)`,
		deckID, domain.QueueReview, maxDay, lim,
	)
}

// CountLearning counts learning cards due before the cutoff, plus
// day-learning and preview cards due today, across the given decks.
func (db *DB) CountLearning(deckIDs []int64, cutoff int64, today int) (int, error) {
	if len(deckIDs) == 0 {
		return 0, nil
	}
	in := placeholders(len(deckIDs))

	args := int64Args(deckIDs)
	args = append(args, domain.QueueLearning, cutoff)
	sub, err := db.countCapped(
		`SELECT count(*) FROM cards WHERE did IN (`+in+`) AND queue = ? AND due < ?`,
		args...,
	)
	if err != nil {
		return 0, err
	}

	args = int64Args(deckIDs)
	args = append(args, domain.QueueDayLearning, today, domain.QueuePreview)
	day, err := db.countCapped(
		`SELECT count(*) FROM cards WHERE did IN (`+in+`)
			AND ((queue = ? AND due <= ?) OR queue = ?)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return sub + day, nil
}

func (db *DB) countCapped(query string, args ...any) (int, error) {
	var n int
	if err := db.conn.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// SiblingsOf returns the other cards of the same note.
func (db *DB) SiblingsOf(noteID, excludeCardID int64) ([]*domain.Card, error) {
	rows, err := db.conn.Query(
		`SELECT `+cardColumns+` FROM cards WHERE nid = ? AND id != ?`,
		noteID, excludeCardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get siblings of note %d: %w", noteID, err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sibling row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// CardsInQueues returns every card currently in one of the given queues.
func (db *DB) CardsInQueues(queues ...domain.QueueKind) ([]*domain.Card, error) {
	if len(queues) == 0 {
		return nil, nil
	}
	args := make([]any, len(queues))
	for i, q := range queues {
		args[i] = q
	}
	rows, err := db.conn.Query(
		`SELECT `+cardColumns+` FROM cards WHERE queue IN (`+placeholders(len(queues))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards by queue: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// CardsInDeck returns every card whose current deck is deckID.
func (db *DB) CardsInDeck(deckID int64) ([]*domain.Card, error) {
	rows, err := db.conn.Query(
		`SELECT `+cardColumns+` FROM cards WHERE did = ?`, deckID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards in deck %d: %w", deckID, err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpdateCardsSched writes the scheduling columns of several cards in one
// transaction.
func (db *DB) UpdateCardsSched(cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin card update: %w", err)
	}
	for _, c := range cards {
		if err := updateCardSched(tx, c); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit card update: %w", err)
	}
	return nil
}

// MaxNewDue returns the highest due position among New-kind cards, or zero
// when there are none.
func (db *DB) MaxNewDue() (int64, error) {
	var due sql.NullInt64
	err := db.conn.QueryRow(
		`SELECT max(due) FROM cards WHERE kind = ?`, domain.KindNew,
	).Scan(&due)
	if err != nil {
		return 0, fmt.Errorf("failed to read max new due: %w", err)
	}
	if !due.Valid {
		return 0, nil
	}
	return due.Int64, nil
}

// ShiftNewDue shifts the due position of New-kind cards at or after start by
// the given amount, excluding the listed cards.
func (db *DB) ShiftNewDue(start, by int64, excludeIDs []int64, mtime int64, usn int) error {
	query := `UPDATE cards SET due = due + ?, mtime = ?, usn = ? WHERE kind = ? AND due >= ?`
	args := []any{by, mtime, usn, domain.KindNew, start}
	if len(excludeIDs) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		args = append(args, int64Args(excludeIDs)...)
	}
	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to shift new card positions: %w", err)
	}
	return nil
}

// GatherFiltered lists candidate cards for a filtered deck: cards in the
// given home decks that are not suspended, not buried and not already parked
// elsewhere, ordered by the term's rule.
func (db *DB) GatherFiltered(deckIDs []int64, order domain.FilterOrder, limit int) ([]int64, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	orderExpr := filterOrderSQL(order)
	args := int64Args(deckIDs)
	args = append(args, limit)
	return db.listIDs(
		`SELECT id FROM cards WHERE did IN (`+placeholders(len(deckIDs))+`)
			AND queue >= 0 AND odid = 0 ORDER BY `+orderExpr+` LIMIT ?`,
		args...,
	)
}

func filterOrderSQL(order domain.FilterOrder) string {
	switch order {
	case domain.FilterOrderRandom:
		return "random()"
	case domain.FilterOrderIntervalsAsc:
		return "ivl"
	case domain.FilterOrderIntervalsDesc:
		return "ivl DESC"
	case domain.FilterOrderAdded:
		return "id"
	case domain.FilterOrderDue:
		return "due"
	default: // FilterOrderOldestSeen
		return "(SELECT max(rl.id) FROM revlog rl WHERE rl.cid = cards.id)"
	}
}
