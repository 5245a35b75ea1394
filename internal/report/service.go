package report

import (
	"context"
	"database/sql"
	"fmt"

	"quizrunner/internal/question"
)

// Service builds result reports from the attempts table.
type Service struct {
	db   *sql.DB
	bank *question.Bank
}

func NewService(db *sql.DB, bank *question.Bank) *Service {
	return &Service{db: db, bank: bank}
}

func (s *Service) Build(ctx context.Context) (*Report, error) {
	records, err := s.Attempts(ctx)
	if err != nil {
		return nil, err
	}
	return Project(s.bank, records)
}

// Attempts returns every attempt with its owner's login, ordered by attempt
// number and then start time.
func (s *Service) Attempts(ctx context.Context) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, u.github_username, a.attempt_number, a.score, a.total_questions,
		       a.answers_json, a.option_mapping_json
		FROM attempts a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.attempt_number ASC, a.started_at ASC, a.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	items := make([]AttemptRecord, 0)
	for rows.Next() {
		var (
			it      AttemptRecord
			score   sql.NullInt64
			total   sql.NullInt64
			answers sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Username, &it.AttemptNumber, &score, &total, &answers, &it.MappingJSON); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			it.Score = &v
		}
		if total.Valid {
			v := int(total.Int64)
			it.Total = &v
		}
		it.AnswersJSON = answers.String
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return items, nil
}
