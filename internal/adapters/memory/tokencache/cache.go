package tokencache

import (
	"context"
	"sync"
	"time"

	clockport "github.com/agus-dev/shortlink-api/internal/ports/out/clock"
)

type entry struct {
	email     string
	expiresAt time.Time
}

// Cache is an in-memory implementation of tokencache.Cache.
// It is safe for concurrent use and intended for local/dev wiring and tests.
type Cache struct {
	clk clockport.Clock

	mu      sync.Mutex
	entries map[string]entry
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewCache() *Cache {
	return NewCacheWithClock(realClock{})
}

func NewCacheWithClock(clk clockport.Clock) *Cache {
	return &Cache{
		clk:     clk,
		entries: make(map[string]entry),
	}
}

func (c *Cache) Get(ctx context.Context, token string) (string, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return "", false, nil
	}
	if !c.clk.Now().Before(e.expiresAt) {
		delete(c.entries, token)
		return "", false, nil
	}
	return e.email, true, nil
}

func (c *Cache) SetIfAbsent(ctx context.Context, token, email string, ttl time.Duration) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	if e, ok := c.entries[token]; ok && now.Before(e.expiresAt) {
		return nil
	}
	c.entries[token] = entry{email: email, expiresAt: now.Add(ttl)}
	return nil
}
