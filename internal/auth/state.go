package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

var ErrInvalidState = errors.New("invalid or expired oauth state")

// DefaultStateTTL bounds the time between login and callback.
const DefaultStateTTL = 600 * time.Second

// StateStore hands out single-use OAuth state tokens.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	// Consume removes the state and fails with ErrInvalidState when it was
	// never issued, already used or has expired.
	Consume(ctx context.Context, state string) error
}

type MemoryStateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	issued map[string]time.Time
}

func NewMemoryStateStore(ttl time.Duration, now func() time.Time) *MemoryStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStateStore{
		ttl:    ttl,
		now:    now,
		issued: make(map[string]time.Time),
	}
}

func (s *MemoryStateStore) Issue(_ context.Context) (string, error) {
	state, err := generateToken(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeLocked(now)
	s.issued[state] = now
	return state, nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeLocked(now)

	issuedAt, ok := s.issued[state]
	if !ok {
		return ErrInvalidState
	}
	delete(s.issued, state)
	if now.Sub(issuedAt) > s.ttl {
		return ErrInvalidState
	}
	return nil
}

// Len reports the number of outstanding states.
func (s *MemoryStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

func (s *MemoryStateStore) purgeLocked(now time.Time) {
	for k, issuedAt := range s.issued {
		if now.Sub(issuedAt) > s.ttl {
			delete(s.issued, k)
		}
	}
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
