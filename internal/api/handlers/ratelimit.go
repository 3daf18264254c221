package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/aces/bvlfeedback/internal/domain/providers"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
)

// RateLimiter caps submissions per key within a fixed window. It counts in
// the shared cache when one is configured and in process memory otherwise,
// or when the cache is unreachable.
type RateLimiter struct {
	cache  providers.CacheProvider
	limit  int
	window time.Duration
	local  *localRateLimiter
}

// NewRateLimiter creates a limiter allowing limit hits per window. cache may be nil.
func NewRateLimiter(cache providers.CacheProvider, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		limit:  limit,
		window: window,
		local:  newLocalRateLimiter(),
	}
}

// Allow records a hit for key and reports whether it is within the limit,
// and if not, how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l.cache == nil {
		return l.local.allow(key, l.limit, l.window)
	}

	count, err := l.cache.Increment(ctx, key, int(l.window.Seconds()))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("rate limit cache unavailable, using local limiter")
		return l.local.allow(key, l.limit, l.window)
	}
	if count <= int64(l.limit) {
		return true, 0
	}

	retryAfter, err := l.cache.TTL(ctx, key)
	if err != nil || retryAfter <= 0 {
		retryAfter = l.window
	}
	return false, retryAfter
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
	now    func() time.Time
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
		now:    time.Now,
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		state = &localRateState{resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := state.resetAt.Sub(now)
		if retryAfter <= 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, 0
}
