package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"quizrunner/internal/question"

	"github.com/xuri/excelize/v2"
)

const questionsSheet = "questions"

var (
	questionHeaders = []string{"number", "question", "correct_text", "options_text", "options_numbers", "correct_numbers"}
	attemptHeaders  = []string{"github", "positive", "negative", "percent"}
)

type workbookStyles struct {
	link      int
	correct   int
	incorrect int
}

// RenderXLSX lays the report out as a workbook: a questions sheet followed by
// one sheet per attempt number.
func RenderXLSX(rep *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(rep, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteXLSX(rep *Report, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName(f.GetSheetName(0), questionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeQuestionsSheet(f, rep.Questions); err != nil {
		return err
	}
	for _, sheet := range rep.Sheets {
		if err := writeAttemptSheet(f, styles, rep.Questions, sheet); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}

// SaveXLSX renders the report into a file at path.
func SaveXLSX(rep *Report, path string) error {
	data, err := RenderXLSX(rep)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var (
		s   workbookStyles
		err error
	)
	if s.link, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "0563C1", Underline: "single"}}); err != nil {
		return s, fmt.Errorf("link style: %w", err)
	}
	white := &excelize.Font{Color: "FFFFFF"}
	if s.correct, err = f.NewStyle(&excelize.Style{
		Font: white,
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2E7D32"}},
	}); err != nil {
		return s, fmt.Errorf("correct style: %w", err)
	}
	if s.incorrect, err = f.NewStyle(&excelize.Style{
		Font: white,
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C62828"}},
	}); err != nil {
		return s, fmt.Errorf("incorrect style: %w", err)
	}
	return s, nil
}

func writeQuestionsSheet(f *excelize.File, questions []question.Question) error {
	for i, h := range questionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(questionsSheet, cell, h)
	}
	for i, q := range questions {
		row := i + 2
		optionsText := make([]string, len(q.Options))
		optionNumbers := make([]string, len(q.Options))
		for idx, opt := range q.Options {
			optionsText[idx] = strconv.Itoa(idx) + ": " + opt
			optionNumbers[idx] = strconv.Itoa(idx)
		}
		correct := q.CorrectSet()
		correctNumbers := make([]string, len(correct))
		for idx, c := range correct {
			correctNumbers[idx] = strconv.Itoa(c)
		}
		values := []any{
			q.ID,
			q.Text,
			strings.Join(q.OptionTexts(correct), ", "),
			strings.Join(optionsText, " | "),
			strings.Join(optionNumbers, ", "),
			strings.Join(correctNumbers, ", "),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(questionsSheet, cell, v); err != nil {
				return fmt.Errorf("questions sheet: %w", err)
			}
		}
	}
	_ = f.SetColWidth(questionsSheet, "B", "D", 40)
	return nil
}

func writeAttemptSheet(f *excelize.File, styles workbookStyles, questions []question.Question, sheet Sheet) error {
	name := sheet.Name()
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	for i, h := range attemptHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(name, cell, h)
	}
	firstQuestionCol := len(attemptHeaders) + 1
	for i, q := range questions {
		cell, _ := excelize.CoordinatesToCellName(firstQuestionCol+i, 1)
		_ = f.SetCellValue(name, cell, fmt.Sprintf("%d. %s", q.ID, q.Text))
		if err := f.SetCellHyperLink(name, cell, fmt.Sprintf("%s!A%d", questionsSheet, i+2), "Location"); err != nil {
			return fmt.Errorf("header link: %w", err)
		}
		_ = f.SetCellStyle(name, cell, cell, styles.link)
	}

	for r, row := range sheet.Rows {
		rowNum := r + 2
		values := []any{row.Username, row.Positive, row.Negative, row.Percent}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("%s row %d: %w", name, rowNum, err)
			}
		}
		for i, ans := range row.Cells {
			cell, _ := excelize.CoordinatesToCellName(firstQuestionCol+i, rowNum)
			_ = f.SetCellValue(name, cell, strings.Join(ans.Texts, ", "))
			if err := f.SetCellHyperLink(name, cell, fmt.Sprintf("%s!E%d", questionsSheet, i+2), "Location"); err != nil {
				return fmt.Errorf("answer link: %w", err)
			}
			switch ans.State {
			case CellCorrect:
				_ = f.SetCellStyle(name, cell, cell, styles.correct)
			case CellIncorrect:
				_ = f.SetCellStyle(name, cell, cell, styles.incorrect)
			}
		}
	}
	_ = f.SetColWidth(name, "A", "A", 22)
	return nil
}
