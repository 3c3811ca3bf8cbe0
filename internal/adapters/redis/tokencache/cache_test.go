package tokencache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/agus-dev/shortlink-api/internal/adapters/contracttest"
	tokencacheport "github.com/agus-dev/shortlink-api/internal/ports/out/tokencache"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestContract_RedisTokenCache(t *testing.T) {
	contracttest.RunTokenCache(t, func(t *testing.T) (tokencacheport.Cache, func()) {
		t.Helper()
		_, rdb := newTestRedis(t)
		return NewCache(rdb), nil
	})
}

func TestCache_EntryExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewCache(rdb)
	ctx := context.Background()

	if err := cache.SetIfAbsent(ctx, "tok", "alice@example.com", 30*time.Second); err != nil {
		t.Fatalf("SetIfAbsent: %v", err)
	}
	if _, ok, err := cache.Get(ctx, "tok"); err != nil || !ok {
		t.Fatalf("Get before expiry: ok=%v err=%v", ok, err)
	}

	mr.FastForward(31 * time.Second)

	if _, ok, err := cache.Get(ctx, "tok"); err != nil || ok {
		t.Fatalf("Get after expiry: ok=%v err=%v", ok, err)
	}
}

func TestCache_SetIfAbsentKeepsWinnerTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewCache(rdb)
	ctx := context.Background()

	if err := cache.SetIfAbsent(ctx, "tok", "alice@example.com", 30*time.Second); err != nil {
		t.Fatalf("SetIfAbsent winner: %v", err)
	}
	mr.FastForward(20 * time.Second)

	// The losing write must neither replace the value nor extend the TTL.
	if err := cache.SetIfAbsent(ctx, "tok", "mallory@example.com", 30*time.Second); err != nil {
		t.Fatalf("SetIfAbsent loser: %v", err)
	}
	mr.FastForward(11 * time.Second)

	if _, ok, err := cache.Get(ctx, "tok"); err != nil || ok {
		t.Fatalf("entry outlived the winner's TTL: ok=%v err=%v", ok, err)
	}
}

func TestCache_GetFailsWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewCache(rdb)
	ctx := context.Background()

	mr.Close()

	if _, _, err := cache.Get(ctx, "tok"); err == nil {
		t.Fatalf("expected error from closed redis")
	}
	if err := cache.SetIfAbsent(ctx, "tok", "alice@example.com", time.Second); err == nil {
		t.Fatalf("expected error from closed redis")
	}
}
