package tokencache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis implementation of tokencache.Cache.
//
// Writes use SET NX with an expiry so a concurrently cached value for the same
// token is never clobbered and stale entries self-heal within the TTL.
type Cache struct {
	rdb redis.UniversalClient
}

func NewCache(rdb redis.UniversalClient) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Get(ctx context.Context, token string) (string, bool, error) {
	email, err := c.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

func (c *Cache) SetIfAbsent(ctx context.Context, token, email string, ttl time.Duration) error {
	return c.rdb.SetNX(ctx, tokenKey(token), email, ttl).Err()
}

func tokenKey(token string) string {
	return "token:" + token
}
