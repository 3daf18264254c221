package providers

import (
	"context"
	"time"
)

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Increment bumps the counter stored at key, starting its expiry on first use,
	// and returns the new value.
	Increment(ctx context.Context, key string, expirationSeconds int) (int64, error)

	// TTL returns the remaining time to live of key
	TTL(ctx context.Context, key string) (time.Duration, error)
}
