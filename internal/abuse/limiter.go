package abuse

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is the pluggable throttling seam. Single-node deployments use
// the in-memory sliding window; multi-replica deployments swap in the Redis
// fixed window so counts are shared.
type RateLimiter interface {
	TryConsume(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SlidingWindowLimiter keeps per-key hit timestamps in memory and admits a
// request while fewer than limit hits fall inside the trailing window.
type SlidingWindowLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewSlidingWindowLimiter builds an in-memory limiter using the wall clock.
func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		hits: map[string][]time.Time{},
		now:  time.Now,
	}
}

// TryConsume records a hit and reports whether it was admitted. Denied hits
// are not recorded, so a throttled client cannot extend its own penalty.
func (l *SlidingWindowLimiter) TryConsume(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		l.hits[key] = kept
		return false, nil
	}

	l.hits[key] = append(kept, now)
	return true, nil
}

// Len reports how many keys currently hold live hits. Exposed for tests and
// the metrics gauge.
func (l *SlidingWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// Sweep drops keys whose hits all fell out of the window. Called periodically
// so long-running processes do not accumulate one entry per fingerprint ever
// seen.
func (l *SlidingWindowLimiter) Sweep(window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	for key, hits := range l.hits {
		live := false
		for _, t := range hits {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.hits, key)
		}
	}
}

type redisWindower interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RedisLimiter adapts the shared Redis fixed-window counter to the
// RateLimiter seam.
type RedisLimiter struct {
	redis redisWindower
}

// NewRedisLimiter wraps the provided Redis client.
func NewRedisLimiter(redis redisWindower) *RedisLimiter {
	return &RedisLimiter{redis: redis}
}

func (l *RedisLimiter) TryConsume(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	allowed, _, err := l.redis.FixedWindowAllow(ctx, key, int64(limit), window)
	if err != nil {
		return false, err
	}
	return allowed, nil
}
