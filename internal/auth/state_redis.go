package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStateStore shares OAuth states between instances. Expiry is left to
// Redis key TTLs.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Issue(ctx context.Context) (string, error) {
	state, err := generateToken(32)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(state), "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return state, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	if err := s.client.GetDel(ctx, s.key(state)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidState
		}
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) key(state string) string {
	return "quizrunner:oauth:state:" + state
}
