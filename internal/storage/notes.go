package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/conorfennell/decksched/internal/domain"
)

func scanNote(row rowScanner) (*domain.Note, error) {
	var n domain.Note
	var tags string
	err := row.Scan(&n.ID, &n.Hash, &n.Question, &n.Answer, &n.Context, &tags, &n.Mtime, &n.USN)
	if err != nil {
		return nil, err
	}
	if tags != "" {
		n.Tags = strings.Fields(tags)
	}
	return &n, nil
}

// GetNote retrieves a note by id. Returns nil if the note does not exist.
func (db *DB) GetNote(id int64) (*domain.Note, error) {
	row := db.conn.QueryRow(
		`SELECT id, hash, question, answer, context, tags, mtime, usn FROM notes WHERE id = ?`, id,
	)
	n, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get note %d: %w", id, err)
	}
	return n, nil
}

// FindNoteByHash retrieves a note by its content hash. Returns nil if absent.
func (db *DB) FindNoteByHash(hash string) (*domain.Note, error) {
	row := db.conn.QueryRow(
		`SELECT id, hash, question, answer, context, tags, mtime, usn FROM notes WHERE hash = ?`, hash,
	)
	n, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find note by hash %s: %w", hash, err)
	}
	return n, nil
}

// InsertNote inserts a note, optionally linked to an import source.
func (db *DB) InsertNote(n *domain.Note, sourceID int64) error {
	var src any
	if sourceID != 0 {
		src = sourceID
	}
	_, err := db.conn.Exec(
		`INSERT INTO notes (id, hash, question, answer, context, tags, mtime, usn, source_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Hash, n.Question, n.Answer, n.Context, strings.Join(n.Tags, " "), n.Mtime, n.USN, src,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", n.Hash, err)
	}
	return nil
}

// UpdateNoteTags writes back a note's tag list.
func (db *DB) UpdateNoteTags(n *domain.Note) error {
	_, err := db.conn.Exec(
		`UPDATE notes SET tags = ?, mtime = ?, usn = ? WHERE id = ?`,
		strings.Join(n.Tags, " "), n.Mtime, n.USN, n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tags of note %d: %w", n.ID, err)
	}
	return nil
}

// DeleteNote removes a note and its cards.
func (db *DB) DeleteNote(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM cards WHERE nid = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards of note %d: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return nil
}

// NotesBySource returns the notes imported from a given source.
func (db *DB) NotesBySource(sourceID int64) ([]*domain.Note, error) {
	rows, err := db.conn.Query(
		`SELECT id, hash, question, answer, context, tags, mtime, usn FROM notes WHERE source_id = ?`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
