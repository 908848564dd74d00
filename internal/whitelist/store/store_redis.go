package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "salegate/pkg/domain"
)

// cacheKeyPrefix marks per-account membership cache entries.
const cacheKeyPrefix = "salegate:whitelist:member:"

// cacheTTL bounds how long a cache entry can outlive the durable truth. The
// write-path Del runs inside the still-open write transaction, so a Contains
// racing the commit can re-cache the pre-commit membership; the TTL caps that
// staleness instead of letting it persist until the next write.
const cacheTTL = 5 * time.Minute

// Redis is a read-through whitelist cache in front of the durable store.
// Purchase traffic hits Contains on every call; mutations are rare admin
// actions, so entries are invalidated on write and expired as a backstop.
type Redis struct {
	client  *redis.Client
	durable *Postgres
}

// NewRedis wraps a durable store with a Redis membership cache.
func NewRedis(client *redis.Client, durable *Postgres) *Redis {
	return &Redis{client: client, durable: durable}
}

func (s *Redis) Add(ctx context.Context, account id.Account) (bool, error) {
	added, err := s.durable.Add(ctx, account)
	if err != nil {
		return false, err
	}
	if added {
		// Invalidation failure only costs a stale negative until the key is
		// touched again; membership truth stays in the durable store.
		_ = s.client.Del(ctx, cacheKey(account)).Err()
	}
	return added, nil
}

func (s *Redis) Remove(ctx context.Context, account id.Account) (bool, error) {
	removed, err := s.durable.Remove(ctx, account)
	if err != nil {
		return false, err
	}
	if removed {
		_ = s.client.Del(ctx, cacheKey(account)).Err()
	}
	return removed, nil
}

func (s *Redis) Contains(ctx context.Context, account id.Account) (bool, error) {
	val, err := s.client.Get(ctx, cacheKey(account)).Result()
	if err == nil {
		return val == "1", nil
	}
	if !errors.Is(err, redis.Nil) {
		// Cache unavailable: fall through to the durable store.
		return s.durable.Contains(ctx, account)
	}

	ok, err := s.durable.Contains(ctx, account)
	if err != nil {
		return false, err
	}
	cached := "0"
	if ok {
		cached = "1"
	}
	_ = s.client.Set(ctx, cacheKey(account), cached, cacheTTL).Err()
	return ok, nil
}

func cacheKey(account id.Account) string {
	return cacheKeyPrefix + account.String()
}
