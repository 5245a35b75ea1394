package exam

import (
	"quizrunner/internal/question"
)

// Mapping holds the per-attempt option permutation of every question:
// Mapping[questionID][presentedIndex] = canonicalIndex.
type Mapping map[int][]int

// Answer is one submitted question with the indexes the user selected in
// presented (shuffled) order.
type Answer struct {
	QuestionID      int   `json:"questionId"`
	SelectedIndexes []int `json:"selectedIndexes"`
}

type IncorrectDetail struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Topic    string   `json:"topic"`
	Correct  []string `json:"correct"`
	Selected []string `json:"selected"`
}

type Evaluation struct {
	Score     int
	Total     int
	Incorrect []IncorrectDetail
	// Unmapped lists bank questions that had no stored permutation.
	Unmapped []int
}

// DecodeSelection translates presented indexes back to canonical option
// indexes. Presented offsets outside the permutation and canonical values
// outside [0, optionCount) are dropped.
func DecodeSelection(perm []int, presented []int, optionCount int) []int {
	out := make([]int, 0, len(presented))
	for _, idx := range presented {
		if idx < 0 || idx >= len(perm) {
			continue
		}
		canonical := perm[idx]
		if canonical < 0 || canonical >= optionCount {
			continue
		}
		out = append(out, canonical)
	}
	return out
}

// IsCorrect applies the all-or-nothing rule. Multi-answer questions need the
// decoded set to equal the correct set; single-answer questions need exactly
// one decoded index equal to the correct one.
func IsCorrect(q question.Question, canonical []int) bool {
	if q.Multiple {
		return equalIntSet(canonical, q.CorrectIndexes)
	}
	if q.CorrectIndex == nil {
		return false
	}
	return len(canonical) == 1 && canonical[0] == *q.CorrectIndex
}

// Evaluate scores a submission against the stored mapping. It has no side
// effects and iterates the bank in ascending id order.
func Evaluate(mapping Mapping, bank *question.Bank, answers []Answer) Evaluation {
	selected := make(map[int][]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedIndexes
	}

	ev := Evaluation{Incorrect: make([]IncorrectDetail, 0)}
	for _, q := range bank.Questions() {
		perm, ok := mapping[q.ID]
		if !ok {
			ev.Unmapped = append(ev.Unmapped, q.ID)
			continue
		}
		ev.Total++

		canonical := DecodeSelection(perm, selected[q.ID], q.OptionCount())
		if IsCorrect(q, canonical) {
			ev.Score++
			continue
		}
		ev.Incorrect = append(ev.Incorrect, IncorrectDetail{
			ID:       q.ID,
			Text:     q.Text,
			Topic:    q.Topic,
			Correct:  q.OptionTexts(q.CorrectSet()),
			Selected: q.OptionTexts(canonical),
		})
	}
	return ev
}

func equalIntSet(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
