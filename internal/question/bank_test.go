package question

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleQuizJSON = `{
  "name": "AQA Sample Quiz",
  "questions": [
    {"id": 2, "topic": "Basics", "text": "Second?", "options": ["A2", "B2", "C2"], "correctIndex": 1},
    {"id": 1, "topic": "Basics", "text": "First?", "options": ["A1", "B1", "C1"], "correctIndex": 0},
    {"id": 3, "topic": "HTTP", "text": "Pick two", "options": ["GET", "PUT", "FETCH"], "multiple": true, "correctIndexes": [0, 1]}
  ]
}`

func TestLoadJSONOrdersByID(t *testing.T) {
	bank, err := Load(strings.NewReader(sampleQuizJSON), FormatJSON)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if bank.Name() != "AQA Sample Quiz" {
		t.Fatalf("unexpected name %q", bank.Name())
	}
	if bank.Len() != 3 {
		t.Fatalf("expected 3 questions, got %d", bank.Len())
	}
	for i, q := range bank.Questions() {
		if q.ID != i+1 {
			t.Fatalf("questions not ordered by id: index %d has id %d", i, q.ID)
		}
	}
	q, ok := bank.Get(3)
	if !ok || !q.Multiple {
		t.Fatalf("expected multi-answer question 3, got %+v ok=%v", q, ok)
	}
	topics := bank.Topics()
	if len(topics) != 2 || topics[0] != "Basics" || topics[1] != "HTTP" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestLoadYAML(t *testing.T) {
	doc := `
questions:
  - id: 7
    text: "Status for created?"
    options: ["200", "201", "204"]
    correctIndex: 1
`
	bank, err := Load(strings.NewReader(doc), FormatYAML)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if bank.Name() != DefaultQuizName {
		t.Fatalf("expected default name, got %q", bank.Name())
	}
	q, ok := bank.Get(7)
	if !ok || q.CorrectIndex == nil || *q.CorrectIndex != 1 {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "invalid json", doc: `{"questions": [`},
		{name: "empty options", doc: `{"questions":[{"id":1,"text":"x","options":[],"correctIndex":0}]}`},
		{name: "correct index out of range", doc: `{"questions":[{"id":1,"text":"x","options":["a"],"correctIndex":1}]}`},
		{name: "negative correct index", doc: `{"questions":[{"id":1,"text":"x","options":["a"],"correctIndex":-1}]}`},
		{name: "missing correct index", doc: `{"questions":[{"id":1,"text":"x","options":["a","b"]}]}`},
		{name: "multi without correct indexes", doc: `{"questions":[{"id":1,"text":"x","options":["a","b"],"multiple":true}]}`},
		{name: "multi index out of range", doc: `{"questions":[{"id":1,"text":"x","options":["a","b"],"multiple":true,"correctIndexes":[0,2]}]}`},
		{name: "duplicate id", doc: `{"questions":[{"id":1,"text":"x","options":["a"],"correctIndex":0},{"id":1,"text":"y","options":["a"],"correctIndex":0}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.doc), FormatJSON)
			if !errors.Is(err, ErrMalformedQuiz) {
				t.Fatalf("expected ErrMalformedQuiz, got %v", err)
			}
		})
	}
}

func TestLoadFilePicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiz.yml")
	if err := os.WriteFile(path, []byte("name: Y\nquestions:\n  - id: 1\n    text: t\n    options: [a, b]\n    correctIndex: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	bank, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if bank.Name() != "Y" || bank.Len() != 1 {
		t.Fatalf("unexpected bank name=%q len=%d", bank.Name(), bank.Len())
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestQuestionHelpers(t *testing.T) {
	one := 2
	single := Question{ID: 1, Options: []string{"a", "b", "c"}, CorrectIndex: &one}
	if got := single.CorrectSet(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected single correct set %v", got)
	}
	multi := Question{ID: 2, Options: []string{"a", "b", "c"}, Multiple: true, CorrectIndexes: []int{2, 0}}
	if got := multi.OptionTexts(multi.CorrectSet()); strings.Join(got, ",") != "c,a" {
		t.Fatalf("unexpected option texts %v", got)
	}
	if got := multi.OptionTexts([]int{-1, 5, 1}); len(got) != 1 || got[0] != "b" {
		t.Fatalf("invalid indexes should be skipped, got %v", got)
	}
}
