package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then records the
// request if the key is under its limit. It returns {allowed, count}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, ttl_ms)
	return {1, current + 1}
end
return {0, current}
`)

// RedisLimiter is a sliding window limiter shared by every server using
// the same Redis
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
	seq    atomic.Uint64
}

// NewRedisLimiter creates a sliding window limiter on client
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}
	if prefix == "" {
		prefix = "declmeta:ratelimit:"
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix, now: time.Now}, nil
}

// Allow records one request for key if it is within budget
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := r.now()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixNano(),
		now.Add(-r.window).UnixNano(),
		r.limit,
		r.window.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return nil, errors.New("unexpected redis script result")
	}

	remaining := r.limit - int(result[1])
	if remaining < 0 {
		remaining = 0
	}
	return &Info{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.window),
		Allowed:   result[0] == 1,
	}, nil
}

// Reset forgets every request recorded for key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the Redis client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
