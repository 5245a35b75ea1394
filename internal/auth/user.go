package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	internaldb "quizrunner/internal/db"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmptyUsername = errors.New("github username is empty")
)

type contextKey string

const userContextKey contextKey = "auth_user"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Service owns the users table. Users are created on their first login and
// never modified afterwards.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, now: now}
}

// EnsureUser returns the user with the given GitHub login, creating it when
// missing. Concurrent first logins converge on the same row.
func (s *Service) EnsureUser(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (github_username, created_at)
		VALUES ($1, $2)
		ON CONFLICT (github_username) DO NOTHING
	`, username, internaldb.FormatTime(s.now())); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, github_username, created_at FROM users WHERE github_username = $1
	`, username))
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, github_username, created_at FROM users WHERE id = $1
	`, userID))
}

func (s *Service) scanUser(row *sql.Row) (*User, error) {
	var (
		u         User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Username, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	t, err := internaldb.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

func CurrentUser(ctx context.Context) (*User, bool) {
	v := ctx.Value(userContextKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}

// ContextWithUser injects an authenticated user into context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
