package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EncodeMapping stores question ids as string object keys.
func EncodeMapping(m Mapping) (string, error) {
	raw := make(map[string][]int, len(m))
	for id, perm := range m {
		raw[strconv.Itoa(id)] = perm
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode option mapping: %w", err)
	}
	return string(b), nil
}

func DecodeMapping(v string) (Mapping, error) {
	var raw map[string][]int
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return nil, fmt.Errorf("decode option mapping: %w", err)
	}
	out := make(Mapping, len(raw))
	for key, perm := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("decode option mapping: question id %q: %w", key, err)
		}
		out[id] = perm
	}
	return out, nil
}

// UnmarshalJSON accepts questionId as a JSON number or a numeric string.
// A null selectedIndexes decodes to an empty selection.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionID      json.RawMessage `json:"questionId"`
		SelectedIndexes []int           `json:"selectedIndexes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := parseQuestionID(raw.QuestionID)
	if err != nil {
		return err
	}
	a.QuestionID = id
	a.SelectedIndexes = raw.SelectedIndexes
	if a.SelectedIndexes == nil {
		a.SelectedIndexes = []int{}
	}
	return nil
}

func parseQuestionID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("questionId is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("questionId: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("questionId %q is not numeric", s)
		}
		return id, nil
	}
	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("questionId: %w", err)
	}
	return id, nil
}

func EncodeAnswers(answers []Answer) (string, error) {
	if answers == nil {
		answers = []Answer{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(b), nil
}

// DecodeAnswers treats an empty column as no answers.
func DecodeAnswers(v string) ([]Answer, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	var out []Answer
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return out, nil
}

func EncodeIncorrect(items []IncorrectDetail) (string, error) {
	if items == nil {
		items = []IncorrectDetail{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode incorrect detail: %w", err)
	}
	return string(b), nil
}
