package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arkline/erp-api/internal/ports"
)

// DefaultCheckTTL bounds how stale a positive auth check may be. Within this
// window repeated checks skip the provider round-trip entirely.
const DefaultCheckTTL = 5 * time.Second

// CheckCache records recently verified user ids with a short TTL. Entries are
// an optimization only; a miss just means the caller re-verifies.
type CheckCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.CheckCache = (*CheckCache)(nil)

// NewCheckCache creates a check cache with the default TTL.
func NewCheckCache(client redis.UniversalClient) *CheckCache {
	return NewCheckCacheWithTTL(client, DefaultCheckTTL)
}

// NewCheckCacheWithTTL creates a check cache with a custom TTL.
func NewCheckCacheWithTTL(client redis.UniversalClient, ttl time.Duration) *CheckCache {
	if ttl <= 0 {
		ttl = DefaultCheckTTL
	}
	return &CheckCache{
		client: client,
		prefix: "authcheck:",
		ttl:    ttl,
	}
}

func (c *CheckCache) Remember(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}
	return c.client.Set(ctx, c.prefix+userID, "1", c.ttl).Err()
}

func (c *CheckCache) Matches(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	_, err := c.client.Get(ctx, c.prefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

func (c *CheckCache) Forget(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+userID).Err()
}
