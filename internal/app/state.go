package app

import (
	"context"
	"fmt"
	"time"

	"quizrunner/internal/auth"

	"github.com/redis/go-redis/v9"
)

// NewStateStore picks the OAuth state store: Redis when REDIS_URL is set so
// several instances can share logins, memory otherwise. The returned func
// releases the Redis client.
func NewStateStore(ctx context.Context, cfg Config, now func() time.Time) (auth.StateStore, func(), error) {
	if cfg.RedisURL == "" {
		return auth.NewMemoryStateStore(auth.DefaultStateTTL, now), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return auth.NewRedisStateStore(client, auth.DefaultStateTTL), func() { _ = client.Close() }, nil
}
