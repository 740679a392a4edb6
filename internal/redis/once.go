package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OnceMarker records that a keyed action happened, so repeated runs skip it.
type OnceMarker interface {
	// MarkOnce returns true only for the first caller within ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unmark forgets a key, letting the action be retried.
	Unmark(ctx context.Context, key string) error
}

type redisOnceMarker struct {
	client *redis.Client
}

func NewRedisOnceMarker(client *redis.Client) OnceMarker {
	return &redisOnceMarker{client: client}
}

func (m *redisOnceMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := m.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return ok, nil
}

func (m *redisOnceMarker) Unmark(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("unmark %s: %w", key, err)
	}
	return nil
}
