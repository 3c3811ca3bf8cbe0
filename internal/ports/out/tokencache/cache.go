package tokencache

import (
	"context"
	"time"
)

// Cache is a short-lived token -> email memoization layer.
//
// Entries may be evicted or expire at any time; a miss is never an error.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached email for token. ok is false on a miss.
	Get(ctx context.Context, token string) (email string, ok bool, err error)

	// SetIfAbsent stores token -> email with the given TTL only when no value
	// is currently cached for token. A concurrently written entry wins and is
	// left untouched.
	SetIfAbsent(ctx context.Context, token, email string, ttl time.Duration) error
}
