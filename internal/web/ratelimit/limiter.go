// Package ratelimit budgets API requests per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	// Allow spends one request from key's budget
	Allow(ctx context.Context, key string) (*Info, error)
	Close() error
}

// Info is the state of one key's budget after a call to Allow
type Info struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// Config selects and sizes a limiter. Requests <= 0 disables limiting.
type Config struct {
	Backend   string // memory or redis
	RedisAddr string
	Requests  int
	Window    time.Duration
	Prefix    string
}

// New builds the limiter cfg describes, or nil when limiting is disabled.
func New(cfg Config) (Limiter, error) {
	if cfg.Requests <= 0 {
		return nil, nil
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be greater than 0")
	}

	switch cfg.Backend {
	case "", "none", "memory":
		return NewMemoryLimiter(cfg.Requests, cfg.Window), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		limiter, err := NewRedisLimiter(client, cfg.Requests, cfg.Window, cfg.Prefix)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return limiter, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
