package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestMemoryStateStoreSingleUse(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStateStore(0, clock.Now)

	state, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(state) < 40 {
		t.Fatalf("state looks too short: %q", state)
	}
	if err := store.Consume(ctx, state); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := store.Consume(ctx, state); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on reuse, got %v", err)
	}
	if err := store.Consume(ctx, "never-issued"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unknown state, got %v", err)
	}
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStateStore(DefaultStateTTL, clock.Now)

	fresh, _ := store.Issue(ctx)
	stale, _ := store.Issue(ctx)

	clock.t = clock.t.Add(DefaultStateTTL)
	if err := store.Consume(ctx, fresh); err != nil {
		t.Fatalf("state at exactly ttl should be accepted, got %v", err)
	}

	clock.t = clock.t.Add(time.Second)
	if err := store.Consume(ctx, stale); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected expired state to be rejected, got %v", err)
	}

	// issuing purges anything past its ttl
	old, _ := store.Issue(ctx)
	clock.t = clock.t.Add(DefaultStateTTL + time.Second)
	if _, err := store.Issue(ctx); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected expired states to be purged, have %d", store.Len())
	}
	if err := store.Consume(ctx, old); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected purged state to be rejected, got %v", err)
	}
}

func TestRedisStateStore(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStateStore(client, time.Minute)
	state, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	key := "quizrunner:oauth:state:" + state
	if !mr.Exists(key) {
		t.Fatalf("expected key %s to exist", key)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	if err := store.Consume(ctx, state); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected key to be removed after consume")
	}
	if err := store.Consume(ctx, state); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on reuse, got %v", err)
	}

	expiring, _ := store.Issue(ctx)
	mr.FastForward(2 * time.Minute)
	if err := store.Consume(ctx, expiring); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected expired state to be rejected, got %v", err)
	}
	if err := store.Consume(ctx, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected empty state to be rejected, got %v", err)
	}
}
