// Package export writes attempt history to an Excel workbook.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/stats"
)

const (
	attemptsSheet = "Attempts"
	answersSheet  = "Answers"
	sectionsSheet = "Sections"
)

// AnswerSource loads the review rows of an attempt.
type AnswerSource interface {
	ListAttemptAnswers(ctx context.Context, attemptID int64) ([]model.AttemptAnswer, error)
}

var (
	attemptHeaders = []string{"Attempt", "Submitted", "Test ID", "Test", "Section", "Difficulty", "Score", "Band", "Correct", "Total", "Duration (s)", "Trigger", "Remote ID"}
	answerHeaders  = []string{"Attempt", "Question", "Answer", "Correct", "Correct Answer"}
	sectionHeaders = []string{"Section", "Attempts", "Average", "Best", "Correct", "Total"}
)

// Workbook builds the history workbook and returns its bytes.
func Workbook(ctx context.Context, src AnswerSource, attempts []model.Attempt) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeRow(f, attemptsSheet, 1, toCells(attemptHeaders)); err != nil {
		return nil, err
	}
	for i, a := range attempts {
		row := []any{
			a.ID,
			a.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
			a.TestID,
			a.TestTitle,
			string(a.Section),
			a.Difficulty,
			a.Score,
			stats.BandFor(a.Score).String(),
			a.Correct,
			a.Total,
			a.DurationMs / 1000,
			string(a.Trigger),
			a.RemoteID,
		}
		if err := writeRow(f, attemptsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(answersSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeRow(f, answersSheet, 1, toCells(answerHeaders)); err != nil {
		return nil, err
	}
	rowIndex := 2
	for _, a := range attempts {
		answers, err := src.ListAttemptAnswers(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load answers of attempt %d: %w", a.ID, err)
		}
		for _, ans := range answers {
			row := []any{a.ID, ans.Index + 1, ans.Answer, yesNo(ans.IsCorrect), ans.CorrectAnswer}
			if err := writeRow(f, answersSheet, rowIndex, row); err != nil {
				return nil, err
			}
			rowIndex++
		}
	}

	if _, err := f.NewSheet(sectionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if err := writeRow(f, sectionsSheet, 1, toCells(sectionHeaders)); err != nil {
		return nil, err
	}
	for i, agg := range stats.AggregateSections(attempts) {
		row := []any{string(agg.Section), agg.Attempts, stats.Average(agg), agg.Best, agg.Correct, agg.Total}
		if err := writeRow(f, sectionsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile saves the workbook at path, replacing any existing file.
func WriteFile(ctx context.Context, path string, src AnswerSource, attempts []model.Attempt) error {
	data, err := Workbook(ctx, src, attempts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
