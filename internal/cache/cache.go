// Package cache stores rendered metadata documents so unchanged fixtures
// are not re-extracted. Backends: in-process memory and Redis.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value, returning ErrCacheMiss when absent or expired
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; a zero ttl uses the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// Clear removes every value under the cache prefix
	Clear(ctx context.Context) error

	// Close releases the backend
	Close() error
}

// Config holds common configuration for cache backends
type Config struct {
	// Backend is one of none, memory or redis
	Backend string
	// RedisAddr is the Redis server address (host:port)
	RedisAddr string
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		Backend:    "memory",
		RedisAddr:  "localhost:6379",
		DefaultTTL: 5 * time.Minute,
		Prefix:     "declmeta:",
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}

// New creates the backend named by cfg.Backend. The "none" backend misses
// on every read and discards writes.
func New(cfg Config) (Cache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	switch cfg.Backend {
	case "", "none":
		return noCache{}, nil
	case "memory":
		return NewMemoryCache(cfg), nil
	case "redis":
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

type noCache struct{}

func (noCache) Get(_ context.Context, key string) ([]byte, error) {
	return nil, ErrCacheMiss{Key: key}
}

func (noCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noCache) Delete(context.Context, string) error                     { return nil }
func (noCache) Clear(context.Context) error                              { return nil }
func (noCache) Close() error                                             { return nil }
