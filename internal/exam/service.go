package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	internaldb "quizrunner/internal/db"
	"quizrunner/internal/question"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptLimitExceeded = errors.New("attempt limit reached")
	ErrAlreadySubmitted     = errors.New("attempt already submitted")
	ErrDeadlineExpired      = errors.New("attempt time expired")
)

// UnlimitedAttempts is reported as attemptsLeft for the privileged user.
const UnlimitedAttempts = 1_000_000_000

const (
	DefaultAttemptLimit    = 3
	DefaultAttemptDuration = 60 * time.Minute
)

// Policy holds the attempt rules of a deployment.
type Policy struct {
	AttemptLimit    int
	AttemptDuration time.Duration
	// PrivilegedUser is exempt from the attempt limit. Empty means nobody.
	PrivilegedUser string
}

func (p Policy) IsPrivileged(username string) bool {
	lector := strings.TrimSpace(p.PrivilegedUser)
	if lector == "" || username == "" {
		return false
	}
	return strings.EqualFold(username, lector)
}

func (p Policy) AttemptsLeft(username string, attemptsDone int) int {
	if p.IsPrivileged(username) {
		return UnlimitedAttempts
	}
	return max(0, p.AttemptLimit-attemptsDone)
}

func (p Policy) withDefaults() Policy {
	if p.AttemptLimit <= 0 {
		p.AttemptLimit = DefaultAttemptLimit
	}
	if p.AttemptDuration <= 0 {
		p.AttemptDuration = DefaultAttemptDuration
	}
	return p
}

type ServiceConfig struct {
	Driver   internaldb.Driver
	Policy   Policy
	Shuffler *Shuffler
	Now      func() time.Time
}

// Service is the attempt ledger: it owns attempt rows, enforces the limit and
// the deadline, and scores submissions.
type Service struct {
	db       *sql.DB
	driver   internaldb.Driver
	bank     *question.Bank
	policy   Policy
	shuffler *Shuffler
	now      func() time.Time
}

type StartedAttempt struct {
	AttemptID     int64          `json:"attemptId"`
	AttemptNumber int            `json:"attemptNumber"`
	Deadline      time.Time      `json:"deadline"`
	Questions     []QuestionView `json:"questions"`
}

type SubmitResult struct {
	Score        int               `json:"score"`
	Total        int               `json:"total"`
	AttemptsLeft int               `json:"attemptsLeft"`
	Incorrect    []IncorrectDetail `json:"incorrect"`
}

type AttemptSummary struct {
	ID             int64      `json:"id"`
	AttemptNumber  int        `json:"attempt_number"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	DeadlineAt     time.Time  `json:"deadline_at"`
	Score          *int       `json:"score"`
	TotalQuestions *int       `json:"total_questions"`
}

type Status struct {
	Attempts     []AttemptSummary `json:"attempts"`
	AttemptsLeft int              `json:"attemptsLeft"`
	IsLector     bool             `json:"isLector"`
}

type QuizConfig struct {
	AttemptLimit   int    `json:"attemptLimit"`
	AttemptMinutes int    `json:"attemptMinutes"`
	Name           string `json:"name"`
}

type QuestionSummary struct {
	Topics []string `json:"topics"`
	Total  int      `json:"total"`
}

type attemptRow struct {
	ID            int64
	UserID        int64
	AttemptNumber int
	DeadlineAt    string
	FinishedAt    sql.NullString
	MappingJSON   string
}

func NewService(db *sql.DB, bank *question.Bank, cfg ServiceConfig) *Service {
	if cfg.Shuffler == nil {
		cfg.Shuffler = NewShuffler(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Driver == "" {
		cfg.Driver = internaldb.DriverSQLite
	}
	return &Service{
		db:       db,
		driver:   cfg.Driver,
		bank:     bank,
		policy:   cfg.Policy.withDefaults(),
		shuffler: cfg.Shuffler,
		now:      cfg.Now,
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

// StartAttempt opens a new attempt with a fresh option shuffle. The mapping
// is committed before the questions are returned.
func (s *Service) StartAttempt(ctx context.Context, userID int64) (*StartedAttempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin start tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	username, err := s.loadUsername(ctx, tx, userID, s.driver.SupportsRowLocks())
	if err != nil {
		return nil, err
	}

	done, err := s.countAttempts(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if !s.policy.IsPrivileged(username) && done >= s.policy.AttemptLimit {
		return nil, ErrAttemptLimitExceeded
	}

	mapping, views := s.shuffler.Present(s.bank)
	mappingJSON, err := EncodeMapping(mapping)
	if err != nil {
		return nil, err
	}

	startedAt := s.now().UTC().Truncate(time.Microsecond)
	deadline := startedAt.Add(s.policy.AttemptDuration)
	number := done + 1

	var attemptID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO attempts (
			user_id,
			attempt_number,
			started_at,
			deadline_at,
			option_mapping_json
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, userID, number, internaldb.FormatTime(startedAt), internaldb.FormatTime(deadline), mappingJSON).Scan(&attemptID); err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit start: %w", err)
	}

	return &StartedAttempt{
		AttemptID:     attemptID,
		AttemptNumber: number,
		Deadline:      deadline,
		Questions:     views,
	}, nil
}

// SubmitAttempt finalizes an attempt at most once. A concurrent or repeated
// submit loses on the conditional update and gets ErrAlreadySubmitted.
func (s *Service) SubmitAttempt(ctx context.Context, attemptID, userID int64, answers []Answer) (*SubmitResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := s.loadAttemptRowForSubmit(ctx, tx, attemptID)
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	if row.FinishedAt.Valid {
		return nil, ErrAlreadySubmitted
	}

	deadline, err := internaldb.ParseTime(row.DeadlineAt)
	if err != nil {
		return nil, fmt.Errorf("attempt %d deadline: %w", row.ID, err)
	}
	now := s.now().UTC()
	if now.After(deadline) {
		return nil, ErrDeadlineExpired
	}

	mapping, err := DecodeMapping(row.MappingJSON)
	if err != nil {
		return nil, fmt.Errorf("attempt %d: %w", row.ID, err)
	}

	ev := Evaluate(mapping, s.bank, answers)
	if len(ev.Unmapped) > 0 {
		log.Printf("attempt %d: no stored option order for questions %v, skipped in scoring", row.ID, ev.Unmapped)
	}

	answersJSON, err := EncodeAnswers(answers)
	if err != nil {
		return nil, err
	}
	incorrectJSON, err := EncodeIncorrect(ev.Incorrect)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE attempts
		SET finished_at = $2,
			score = $3,
			total_questions = $4,
			answers_json = $5,
			incorrect_json = $6
		WHERE id = $1 AND finished_at IS NULL
	`, row.ID, internaldb.FormatTime(now.Truncate(time.Microsecond)), ev.Score, ev.Total, answersJSON, incorrectJSON)
	if err != nil {
		return nil, fmt.Errorf("update attempt final: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update attempt final rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlreadySubmitted
	}

	username, err := s.loadUsername(ctx, tx, row.UserID, false)
	if err != nil {
		return nil, err
	}
	done, err := s.countAttempts(ctx, tx, row.UserID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit: %w", err)
	}

	return &SubmitResult{
		Score:        ev.Score,
		Total:        ev.Total,
		AttemptsLeft: s.policy.AttemptsLeft(username, done),
		Incorrect:    ev.Incorrect,
	}, nil
}

func (s *Service) AttemptsLeft(ctx context.Context, userID int64) (int, error) {
	left, _, err := s.Standing(ctx, userID)
	return left, err
}

// Standing reports the attempts a user has left and whether the user is
// exempt from the limit.
func (s *Service) Standing(ctx context.Context, userID int64) (int, bool, error) {
	username, err := s.loadUsername(ctx, s.db, userID, false)
	if err != nil {
		return 0, false, err
	}
	done, err := s.countAttempts(ctx, s.db, userID)
	if err != nil {
		return 0, false, err
	}
	return s.policy.AttemptsLeft(username, done), s.policy.IsPrivileged(username), nil
}

// Status lists the user's attempts, most recent attempt number first.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	username, err := s.loadUsername(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_number, started_at, finished_at, deadline_at, score, total_questions
		FROM attempts
		WHERE user_id = $1
		ORDER BY attempt_number DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]AttemptSummary, 0)
	for rows.Next() {
		var (
			it         AttemptSummary
			startedAt  string
			deadlineAt string
			finishedAt sql.NullString
			score      sql.NullInt64
			total      sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.AttemptNumber, &startedAt, &finishedAt, &deadlineAt, &score, &total); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if it.StartedAt, err = internaldb.ParseTime(startedAt); err != nil {
			return nil, err
		}
		if it.DeadlineAt, err = internaldb.ParseTime(deadlineAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			t, err := internaldb.ParseTime(finishedAt.String)
			if err != nil {
				return nil, err
			}
			it.FinishedAt = &t
		}
		if score.Valid {
			v := int(score.Int64)
			it.Score = &v
		}
		if total.Valid {
			v := int(total.Int64)
			it.TotalQuestions = &v
		}
		attempts = append(attempts, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return &Status{
		Attempts:     attempts,
		AttemptsLeft: s.policy.AttemptsLeft(username, len(attempts)),
		IsLector:     s.policy.IsPrivileged(username),
	}, nil
}

func (s *Service) Config() QuizConfig {
	return QuizConfig{
		AttemptLimit:   s.policy.AttemptLimit,
		AttemptMinutes: int(s.policy.AttemptDuration / time.Minute),
		Name:           s.bank.Name(),
	}
}

func (s *Service) QuestionSummary() QuestionSummary {
	return QuestionSummary{
		Topics: s.bank.Topics(),
		Total:  s.bank.Len(),
	}
}

func (s *Service) loadUsername(ctx context.Context, q queryable, userID int64, forUpdate bool) (string, error) {
	query := `SELECT github_username FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var username string
	if err := q.QueryRowContext(ctx, query, userID).Scan(&username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("load user: %w", err)
	}
	return username, nil
}

func (s *Service) countAttempts(ctx context.Context, q queryable, userID int64) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func (s *Service) loadAttemptRowForSubmit(ctx context.Context, tx *sql.Tx, attemptID int64) (*attemptRow, error) {
	query := `
		SELECT id, user_id, attempt_number, deadline_at, finished_at, option_mapping_json
		FROM attempts
		WHERE id = $1`
	if s.driver.SupportsRowLocks() {
		query += ` FOR UPDATE`
	}

	row := &attemptRow{}
	err := tx.QueryRowContext(ctx, query, attemptID).Scan(
		&row.ID,
		&row.UserID,
		&row.AttemptNumber,
		&row.DeadlineAt,
		&row.FinishedAt,
		&row.MappingJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt for update: %w", err)
	}
	return row, nil
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}
