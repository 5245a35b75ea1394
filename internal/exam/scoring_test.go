package exam

import (
	"reflect"
	"testing"

	"quizrunner/internal/question"
)

func intPtr(v int) *int { return &v }

func testBank(t *testing.T) *question.Bank {
	t.Helper()
	bank, err := question.New("AQA Sample Quiz", []question.Question{
		{ID: 1, Topic: "Basics", Text: "First?", Options: []string{"A1", "B1", "C1"}, CorrectIndex: intPtr(0)},
		{ID: 2, Topic: "Basics", Text: "Second?", Options: []string{"A2", "B2", "C2"}, CorrectIndex: intPtr(1)},
	})
	if err != nil {
		t.Fatalf("build bank: %v", err)
	}
	return bank
}

func TestDecodeSelection(t *testing.T) {
	tests := []struct {
		name        string
		perm        []int
		presented   []int
		optionCount int
		want        []int
	}{
		{name: "maps through permutation", perm: []int{2, 0, 1}, presented: []int{0, 2}, optionCount: 3, want: []int{2, 1}},
		{name: "drops presented index past end", perm: []int{2, 0, 1}, presented: []int{3, 1}, optionCount: 3, want: []int{0}},
		{name: "drops negative presented index", perm: []int{2, 0, 1}, presented: []int{-1}, optionCount: 3, want: []int{}},
		{name: "drops canonical out of range", perm: []int{0, 1, 7}, presented: []int{2, 0}, optionCount: 3, want: []int{0}},
		{name: "empty selection", perm: []int{1, 0}, presented: nil, optionCount: 2, want: []int{}},
		{name: "keeps duplicates", perm: []int{1, 0}, presented: []int{0, 0}, optionCount: 2, want: []int{1, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeSelection(tc.perm, tc.presented, tc.optionCount)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for _, v := range got {
				if v < 0 || v >= tc.optionCount {
					t.Fatalf("decoded index %d outside [0,%d)", v, tc.optionCount)
				}
			}
		})
	}
}

func TestIsCorrect(t *testing.T) {
	single := question.Question{ID: 1, Options: []string{"a", "b", "c"}, CorrectIndex: intPtr(1)}
	multi := question.Question{ID: 2, Options: []string{"a", "b", "c", "d"}, Multiple: true, CorrectIndexes: []int{0, 3}}

	tests := []struct {
		name      string
		q         question.Question
		canonical []int
		want      bool
	}{
		{name: "single exact", q: single, canonical: []int{1}, want: true},
		{name: "single wrong", q: single, canonical: []int{0}, want: false},
		{name: "single two selections", q: single, canonical: []int{1, 0}, want: false},
		{name: "single duplicate selection", q: single, canonical: []int{1, 1}, want: false},
		{name: "single empty", q: single, canonical: []int{}, want: false},
		{name: "multi exact any order", q: multi, canonical: []int{3, 0}, want: true},
		{name: "multi with duplicates", q: multi, canonical: []int{0, 3, 3}, want: true},
		{name: "multi missing one", q: multi, canonical: []int{0}, want: false},
		{name: "multi extra one", q: multi, canonical: []int{0, 3, 1}, want: false},
		{name: "multi empty", q: multi, canonical: nil, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(tc.q, tc.canonical); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEvaluateAllCorrect(t *testing.T) {
	bank := testBank(t)
	mapping := Mapping{1: {2, 0, 1}, 2: {1, 2, 0}}

	// canonical 0 of q1 is shown at position 1, canonical 1 of q2 at position 0
	ev := Evaluate(mapping, bank, []Answer{
		{QuestionID: 1, SelectedIndexes: []int{1}},
		{QuestionID: 2, SelectedIndexes: []int{0}},
	})

	if ev.Score != 2 || ev.Total != 2 {
		t.Fatalf("expected score=2 total=2, got score=%d total=%d", ev.Score, ev.Total)
	}
	if len(ev.Incorrect) != 0 {
		t.Fatalf("expected no incorrect items, got %+v", ev.Incorrect)
	}
}

func TestEvaluateIncorrectDetail(t *testing.T) {
	bank := testBank(t)
	mapping := Mapping{1: {2, 0, 1}, 2: {1, 2, 0}}

	ev := Evaluate(mapping, bank, []Answer{
		{QuestionID: 1, SelectedIndexes: []int{0}},
		{QuestionID: 99, SelectedIndexes: []int{0}},
	})

	if ev.Score != 0 || ev.Total != 2 {
		t.Fatalf("expected score=0 total=2, got score=%d total=%d", ev.Score, ev.Total)
	}
	if len(ev.Incorrect) != 2 {
		t.Fatalf("expected 2 incorrect items, got %d", len(ev.Incorrect))
	}
	first := ev.Incorrect[0]
	if first.ID != 1 || !reflect.DeepEqual(first.Correct, []string{"A1"}) || !reflect.DeepEqual(first.Selected, []string{"C1"}) {
		t.Fatalf("unexpected detail for q1: %+v", first)
	}
	second := ev.Incorrect[1]
	if second.ID != 2 || len(second.Selected) != 0 || !reflect.DeepEqual(second.Correct, []string{"B2"}) {
		t.Fatalf("unanswered q2 should be incorrect with empty selection: %+v", second)
	}
}

func TestEvaluateSkipsUnmappedQuestion(t *testing.T) {
	bank := testBank(t)
	ev := Evaluate(Mapping{2: {0, 1, 2}}, bank, []Answer{{QuestionID: 2, SelectedIndexes: []int{1}}})

	if ev.Total != 1 || ev.Score != 1 {
		t.Fatalf("expected score=1 total=1, got score=%d total=%d", ev.Score, ev.Total)
	}
	if !reflect.DeepEqual(ev.Unmapped, []int{1}) {
		t.Fatalf("expected q1 reported unmapped, got %v", ev.Unmapped)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	bank := testBank(t)
	mapping := Mapping{1: {1, 2, 0}, 2: {2, 1, 0}}
	answers := []Answer{{QuestionID: 1, SelectedIndexes: []int{2}}, {QuestionID: 2, SelectedIndexes: []int{0, 1}}}

	first := Evaluate(mapping, bank, answers)
	for i := 0; i < 5; i++ {
		if got := Evaluate(mapping, bank, answers); !reflect.DeepEqual(got, first) {
			t.Fatalf("evaluation changed between runs: %+v vs %+v", got, first)
		}
	}
}
