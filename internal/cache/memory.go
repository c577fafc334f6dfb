package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache implements an in-memory cache with TTL support
type MemoryCache struct {
	data   sync.Map
	config Config
	cancel context.CancelFunc
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryCache creates an in-memory cache and starts its expiry sweeper.
// Close stops the sweeper.
func NewMemoryCache(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		config: config,
		cancel: cancel,
	}
	go mc.cleanupExpired(ctx, time.Minute)
	return mc
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey := m.config.Prefix + key
	value, ok := m.data.Load(fullKey)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}

	item := value.(cacheItem)
	if item.expired(time.Now()) {
		m.data.Delete(fullKey)
		return nil, ErrCacheMiss{Key: key}
	}
	return item.value, nil
}

// Set stores a value in the cache with a TTL. A negative ttl never expires.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	item := cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}
	m.data.Store(m.config.Prefix+key, item)
	return nil
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Delete(m.config.Prefix + key)
	return nil
}

// Clear removes all values under the cache prefix
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Range(func(key, _ interface{}) bool {
		if strings.HasPrefix(key.(string), m.config.Prefix) {
			m.data.Delete(key)
		}
		return true
	})
	return nil
}

// Close stops the background cleanup goroutine
func (m *MemoryCache) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *MemoryCache) cleanupExpired(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.data.Range(func(key, value interface{}) bool {
				if value.(cacheItem).expired(now) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
