package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultQuizName = "QA Quiz"

var ErrMalformedQuiz = errors.New("malformed quiz")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension.
// Anything that is not .yaml/.yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Question is one canonical quiz item. Option order is the order of the
// source document and never changes after load.
type Question struct {
	ID             int      `json:"id" yaml:"id"`
	Topic          string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Text           string   `json:"text" yaml:"text"`
	Options        []string `json:"options" yaml:"options"`
	Multiple       bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	CorrectIndex   *int     `json:"correctIndex,omitempty" yaml:"correctIndex,omitempty"`
	CorrectIndexes []int    `json:"correctIndexes,omitempty" yaml:"correctIndexes,omitempty"`
}

func (q Question) OptionCount() int {
	return len(q.Options)
}

// CorrectSet returns the canonical correct option indexes.
func (q Question) CorrectSet() []int {
	if q.Multiple {
		out := make([]int, len(q.CorrectIndexes))
		copy(out, q.CorrectIndexes)
		return out
	}
	if q.CorrectIndex == nil {
		return nil
	}
	return []int{*q.CorrectIndex}
}

// OptionTexts maps canonical indexes to option texts, skipping invalid ones.
func (q Question) OptionTexts(indexes []int) []string {
	out := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(q.Options) {
			continue
		}
		out = append(out, q.Options[idx])
	}
	return out
}

type document struct {
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Bank is the immutable question set for one deployment.
type Bank struct {
	name      string
	questions []Question
	byID      map[int]int
}

func LoadFile(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quiz file: %w", err)
	}
	defer f.Close()

	bank, err := Load(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return bank, nil
}

func Load(r io.Reader, format Format) (*Bank, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrMalformedQuiz, err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrMalformedQuiz, err)
		}
	}
	return New(doc.Name, doc.Questions)
}

// New validates the questions and builds a Bank ordered by ascending id.
func New(name string, questions []Question) (*Bank, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultQuizName
	}

	byID := make(map[int]int, len(questions))
	ordered := make([]Question, 0, len(questions))
	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("%w: questions[%d]: %v", ErrMalformedQuiz, i, err)
		}
		if _, exists := byID[q.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrMalformedQuiz, q.ID)
		}
		byID[q.ID] = -1
		ordered = append(ordered, q)
	}

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for i, q := range ordered {
		byID[q.ID] = i
	}

	return &Bank{name: name, questions: ordered, byID: byID}, nil
}

func validateQuestion(q Question) error {
	n := len(q.Options)
	if n == 0 {
		return fmt.Errorf("question %d has no options", q.ID)
	}
	if q.Multiple {
		if len(q.CorrectIndexes) == 0 {
			return fmt.Errorf("question %d: correctIndexes (non-empty array) is required", q.ID)
		}
		for _, idx := range q.CorrectIndexes {
			if idx < 0 || idx >= n {
				return fmt.Errorf("question %d: correctIndexes value %d out of range [0,%d)", q.ID, idx, n)
			}
		}
		return nil
	}
	if q.CorrectIndex == nil {
		return fmt.Errorf("question %d: correctIndex is required", q.ID)
	}
	if *q.CorrectIndex < 0 || *q.CorrectIndex >= n {
		return fmt.Errorf("question %d: correctIndex %d out of range [0,%d)", q.ID, *q.CorrectIndex, n)
	}
	return nil
}

func (b *Bank) Name() string {
	return b.name
}

func (b *Bank) Len() int {
	return len(b.questions)
}

// Questions returns the questions in ascending id order. Callers must not
// modify the returned slice.
func (b *Bank) Questions() []Question {
	return b.questions
}

func (b *Bank) Get(id int) (Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// Topics lists distinct non-empty topics in question order.
func (b *Bank) Topics() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, q := range b.questions {
		t := strings.TrimSpace(q.Topic)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
