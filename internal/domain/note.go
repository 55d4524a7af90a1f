package domain

import "strings"

// Note is the question/answer/context content a card presents. Several cards
// may share one note; the scheduler only needs notes for sibling burying and
// for tagging leeches.
type Note struct {
	ID       int64
	Hash     string // content hash, used by the importer for dedup
	Question string
	Answer   string
	Context  string
	Tags     []string
	Mtime    int64
	USN      int
}

// HasTag reports whether the note carries the given tag, case-insensitively.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AddTag appends the tag unless already present.
func (n *Note) AddTag(tag string) {
	if !n.HasTag(tag) {
		n.Tags = append(n.Tags, tag)
	}
}
