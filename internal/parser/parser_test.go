package parser

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedNotes int
		expectedQ     string
		expectedA     string
		expectedC     string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedNotes: 1,
			expectedQ:     "What is the capital of France?",
			expectedA:     "Paris",
			expectedC:     "",
		},
		{
			name:          "Simple Q, A, and C",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedNotes: 1,
			expectedQ:     "What is 1+1?",
			expectedA:     "2",
			expectedC:     "Basic arithmetic",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedNotes: 1,
			expectedQ:     "What are the primary colors?",
			expectedA:     "Red\nBlue\nYellow",
			expectedC:     "",
		},
		{
			name: "Two Notes",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedNotes: 2,
		},
		{
			name: "Separator between notes",
			input: `
Q: First question
A: First answer
---
Q: Second question
A: Second answer
`,
			expectedNotes: 2,
		},
		{
			name: "Note with all fields and multiline",
			input: `
Q: What is Go?
A: A statically typed, compiled programming language.
It was designed at Google.
C: Programming Languages
`,
			expectedNotes: 1,
			expectedQ:     "What is Go?",
			expectedA:     "A statically typed, compiled programming language.\nIt was designed at Google.",
			expectedC:     "Programming Languages",
		},
		{
			name:          "No notes, just text",
			input:         "This is a file with no questions.",
			expectedNotes: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedNotes: 1,
			expectedQ:     "Question",
			expectedA:     "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			notes, err := Parse(r)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(notes) != tc.expectedNotes {
				t.Fatalf("Expected %d notes, but got %d", tc.expectedNotes, len(notes))
			}

			if tc.expectedNotes == 1 {
				note := notes[0]
				if note.Question != tc.expectedQ {
					t.Errorf("Expected Question to be '%s', but got '%s'", tc.expectedQ, note.Question)
				}
				if note.Answer != tc.expectedA {
					t.Errorf("Expected Answer to be '%s', but got '%s'", tc.expectedA, note.Answer)
				}
				if note.Context != tc.expectedC {
					t.Errorf("Expected Context to be '%s', but got '%s'", tc.expectedC, note.Context)
				}
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	input := `
Q: What is a goroutine?
A: A lightweight thread managed by the Go runtime.
T: go concurrency
`
	notes, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("Expected 1 note, but got %d", len(notes))
	}
	tags := notes[0].Tags
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "concurrency" {
		t.Errorf("Expected tags [go concurrency], got %v", tags)
	}
}
