package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

func TestNew(t *testing.T) {
	l, err := New(Config{Requests: 0})
	require.NoError(t, err)
	assert.Nil(t, l)

	_, err = New(Config{Requests: 5})
	assert.Error(t, err, "window is required")

	l, err = New(Config{Backend: "memory", Requests: 5, Window: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)
	require.NoError(t, l.Close())

	_, mr := setupTestRedis(t)
	l, err = New(Config{Backend: "redis", RedisAddr: mr.Addr(), Requests: 5, Window: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)
	require.NoError(t, l.Close())

	_, err = New(Config{Backend: "redis", RedisAddr: "127.0.0.1:1", Requests: 5, Window: time.Second})
	assert.Error(t, err)

	_, err = New(Config{Backend: "etcd", Requests: 5, Window: time.Second})
	assert.Error(t, err)
}

func TestMemoryLimiter_Budget(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	defer l.Close()

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		info, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Equal(t, i, info.Remaining)
		assert.Equal(t, 3, info.Limit)
	}

	info, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, clock.Add(time.Minute), info.ResetAt)

	other, err := l.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys have separate buckets")

	// a third of the window refills one token
	clock = clock.Add(20 * time.Second)
	info, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)

	// refill never exceeds the limit
	clock = clock.Add(time.Hour)
	info, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Remaining)
}

func TestMemoryLimiter_EvictIdle(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	defer l.Close()

	clock := time.Now()
	l.now = func() time.Time { return clock }
	_, err := l.Allow(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())

	clock = clock.Add(3 * time.Second)
	l.evictIdle()
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l := NewMemoryLimiter(50, time.Hour)
	defer l.Close()

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := l.Allow(context.Background(), "shared")
			if err == nil && info.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemoryLimiter_CanceledContext(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Allow(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRedisLimiter_InvalidConfig(t *testing.T) {
	client, _ := setupTestRedis(t)
	defer client.Close()

	tests := []struct {
		name   string
		client *redis.Client
		limit  int
		window time.Duration
		want   string
	}{
		{"nil client", nil, 1, time.Second, "redis client is required"},
		{"zero limit", client, 0, time.Second, "limit must be greater than 0"},
		{"zero window", client, 1, 0, "window must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedisLimiter(tt.client, tt.limit, tt.window, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, mr := setupTestRedis(t)
	l, err := NewRedisLimiter(client, 2, time.Minute, "test:")
	require.NoError(t, err)
	defer l.Close()

	clock := time.Now()
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	info, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 1, info.Remaining)

	info, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)

	info, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	assert.True(t, mr.Exists("test:client"))
	assert.False(t, mr.Exists("declmeta:ratelimit:client"))

	// entries older than the window no longer count
	clock = clock.Add(61 * time.Second)
	info, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	require.NoError(t, l.Reset(ctx, "client"))
	assert.False(t, mr.Exists("test:client"))
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	l, err := NewRedisLimiter(client, 2, time.Minute, "")
	require.NoError(t, err)
	defer l.Close()

	mr.SetError("LOADING")
	_, err = l.Allow(context.Background(), "client")
	assert.Error(t, err)
}
