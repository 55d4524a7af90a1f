// Package parser extracts notes from markdown files. A note is a block of
// "Q:", "A:" and optional "C:" prefixed sections; "---" or the next "Q:"
// starts a new note.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/decksched/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	tagsPrefix     = "T:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all notes.
func ParseFile(path string) ([]domain.Note, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all notes.
func Parse(r io.Reader) ([]domain.Note, error) {
	scanner := bufio.NewScanner(r)
	var notes []domain.Note
	var current domain.Note
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch currentState {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		}
		block = nil
	}

	finishNote := func() {
		flushBlock()
		if current.Question != "" {
			notes = append(notes, current)
		}
		current = domain.Note{}
		currentState = seeking
	}

	stripPrefix := func(line, prefix string) string {
		content := line[len(prefix):]
		return strings.TrimPrefix(content, " ")
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishNote()
			continue
		}
		if strings.HasPrefix(line, tagsPrefix) {
			flushBlock()
			current.Tags = strings.Fields(stripPrefix(line, tagsPrefix))
			continue
		}

		switch {
		case strings.HasPrefix(line, questionPrefix):
			// A new question always starts a new note.
			if currentState != seeking {
				finishNote()
			} else {
				flushBlock()
			}
			currentState = readingQuestion
			block = append(block, stripPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			currentState = readingAnswer
			block = append(block, stripPrefix(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			currentState = readingContext
			block = append(block, stripPrefix(line, contextPrefix))
		default:
			if currentState != seeking {
				block = append(block, line)
			}
		}
	}

	finishNote() // the last note has no trailing separator

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}
