// Package ratelimit implements a Redis-backed sliding window limiter.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nephh/twitter-clone/internal/social"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errNoClient = errors.New("rate limiter: redis client not configured")

// KEYS[1] window key; ARGV: now ms, window ms, max, member.
// Entries older than the window are dropped before counting.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Limiter allows at most Max acquisitions per key within any Window.
type Limiter struct {
	redis  *redis.Client
	max    int
	window time.Duration
	prefix string
	now    func() time.Time
}

// New rejects a non-positive max or window, either of which would let every
// attempt through.
func New(client *redis.Client, max int, window time.Duration) (*Limiter, error) {
	if max <= 0 {
		return nil, fmt.Errorf("rate limiter: max must be positive, got %d", max)
	}
	if window < time.Millisecond {
		return nil, fmt.Errorf("rate limiter: window must be at least 1ms, got %s", window)
	}
	return &Limiter{
		redis:  client,
		max:    max,
		window: window,
		prefix: "ratelimit:posts:",
		now:    time.Now,
	}, nil
}

// TryAcquire records one attempt for key and reports whether it fits in the
// window. Redis failures are returned; callers must not treat them as allowed.
func (l *Limiter) TryAcquire(ctx context.Context, key string) (bool, error) {
	if l.redis == nil {
		return false, errNoClient
	}
	now := l.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	allowed, err := slidingWindow.Run(ctx, l.redis,
		[]string{l.prefix + key},
		now, l.window.Milliseconds(), l.max, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	return allowed == 1, nil
}

var _ social.RateLimiter = (*Limiter)(nil)
