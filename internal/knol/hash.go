// Package knol derives stable content identities for notes. The hash keys
// deduplication across imports: a note re-read from disk maps back to the
// same row as long as its content is unchanged.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/decksched/internal/domain"
)

// Normalize concatenates the note's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(n domain.Note) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(n.Question)
	a := normalizePart(n.Answer)
	c := normalizePart(n.Context)

	// Joined with a newline so adjacent fields can never run together,
	// e.g. "question" and "answer" becoming "questionanswer".
	return strings.Join([]string{q, a, c}, "\n")
}

// Hash takes a note, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(n domain.Note) string {
	normalized := Normalize(n)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
