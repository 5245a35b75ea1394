package report

import (
	"fmt"
	"math"
	"sort"

	"quizrunner/internal/exam"
	"quizrunner/internal/question"
)

type CellState int

const (
	CellUnanswered CellState = iota
	CellCorrect
	CellIncorrect
)

func (s CellState) String() string {
	switch s {
	case CellCorrect:
		return "correct"
	case CellIncorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

// AttemptRecord is a stored attempt joined with its owner's login.
type AttemptRecord struct {
	ID            int64
	Username      string
	AttemptNumber int
	Score         *int
	Total         *int
	AnswersJSON   string
	MappingJSON   string
}

type AnswerCell struct {
	Texts []string
	State CellState
}

type Row struct {
	Username string
	Positive int
	Negative int
	Percent  float64
	// Cells follows the bank order.
	Cells []AnswerCell
}

type Sheet struct {
	AttemptNumber int
	Rows          []Row
}

func (s Sheet) Name() string {
	return fmt.Sprintf("attempt%d", s.AttemptNumber)
}

type Report struct {
	Questions []question.Question
	Sheets    []Sheet
}

// Project groups finished attempts by attempt number and classifies every
// answer cell. Attempts without a stored total are left out. Records are
// expected in the order they should appear within a sheet.
func Project(bank *question.Bank, records []AttemptRecord) (*Report, error) {
	questions := bank.Questions()
	byNumber := make(map[int][]Row)

	for _, rec := range records {
		if rec.Total == nil || *rec.Total == 0 {
			continue
		}
		row, err := projectRow(questions, rec)
		if err != nil {
			return nil, err
		}
		byNumber[rec.AttemptNumber] = append(byNumber[rec.AttemptNumber], row)
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	rep := &Report{Questions: questions, Sheets: make([]Sheet, 0, len(numbers))}
	for _, n := range numbers {
		rep.Sheets = append(rep.Sheets, Sheet{AttemptNumber: n, Rows: byNumber[n]})
	}
	return rep, nil
}

func projectRow(questions []question.Question, rec AttemptRecord) (Row, error) {
	mapping, err := exam.DecodeMapping(rec.MappingJSON)
	if err != nil {
		return Row{}, fmt.Errorf("attempt %d: %w", rec.ID, err)
	}
	answers, err := exam.DecodeAnswers(rec.AnswersJSON)
	if err != nil {
		return Row{}, fmt.Errorf("attempt %d: %w", rec.ID, err)
	}
	selected := make(map[int][]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedIndexes
	}

	total := *rec.Total
	score := 0
	if rec.Score != nil {
		score = *rec.Score
	}
	row := Row{
		Username: rec.Username,
		Positive: score,
		Negative: total - score,
		Percent:  math.Round(float64(score)/float64(total)*100*100) / 100,
		Cells:    make([]AnswerCell, len(questions)),
	}

	for i, q := range questions {
		presented, answered := selected[q.ID]
		if !answered {
			continue
		}
		// An answer without a stored permutation decodes to nothing and
		// counts as incorrect.
		canonical := exam.DecodeSelection(mapping[q.ID], presented, q.OptionCount())
		cell := AnswerCell{Texts: q.OptionTexts(canonical), State: CellIncorrect}
		if exam.IsCorrect(q, canonical) {
			cell.State = CellCorrect
		}
		row.Cells[i] = cell
	}
	return row, nil
}
