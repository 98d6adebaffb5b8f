package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultReplayTTL matches the webhook signature tolerance window.
const DefaultReplayTTL = 300 * time.Second

// ReplayGuard remembers webhook envelope ids that were already processed.
type ReplayGuard interface {
	// MarkSeen records id and reports whether it had already been recorded within the TTL.
	MarkSeen(ctx context.Context, id string) (bool, error)
	// Forget drops id so a redelivery is processed again.
	Forget(ctx context.Context, id string) error
	Close() error
}

// RedisReplayGuard shares seen ids through Redis with SETNX and a TTL.
type RedisReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReplayGuard connects to redisURL and verifies the connection.
func NewRedisReplayGuard(ctx context.Context, redisURL string, ttl time.Duration) (*RedisReplayGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &RedisReplayGuard{client: client, ttl: ttl}, nil
}

func replayKey(id string) string {
	return fmt.Sprintf("webhook:seen:%s", id)
}

func (g *RedisReplayGuard) MarkSeen(ctx context.Context, id string) (bool, error) {
	created, err := g.client.SetNX(ctx, replayKey(id), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay guard: %w", err)
	}
	return !created, nil
}

func (g *RedisReplayGuard) Forget(ctx context.Context, id string) error {
	if err := g.client.Del(ctx, replayKey(id)).Err(); err != nil {
		return fmt.Errorf("replay guard: %w", err)
	}
	return nil
}

func (g *RedisReplayGuard) Close() error {
	return g.client.Close()
}

// MemoryReplayGuard keeps seen ids in process memory.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryReplayGuard(ttl time.Duration) *MemoryReplayGuard {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &MemoryReplayGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (g *MemoryReplayGuard) MarkSeen(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, expires := range g.seen {
		if !now.Before(expires) {
			delete(g.seen, k)
		}
	}

	if _, ok := g.seen[id]; ok {
		return true, nil
	}
	g.seen[id] = now.Add(g.ttl)
	return false, nil
}

func (g *MemoryReplayGuard) Forget(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, id)
	return nil
}

func (g *MemoryReplayGuard) Close() error {
	return nil
}

// NewReplayGuard uses Redis when redisURL is set and falls back to process memory otherwise.
func NewReplayGuard(ctx context.Context, redisURL string, ttl time.Duration) (ReplayGuard, error) {
	if redisURL == "" {
		return NewMemoryReplayGuard(ttl), nil
	}
	return NewRedisReplayGuard(ctx, redisURL, ttl)
}
