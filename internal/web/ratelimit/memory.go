package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process token bucket per key. A bucket holds up to
// limit tokens and refills limit tokens per window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewMemoryLimiter creates a token bucket limiter. Idle buckets are dropped
// every few windows.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.cleanupLoop(5 * window)
	return m
}

// Allow spends one token from key's bucket
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: m.limit, lastRefill: now}
		m.buckets[key] = b
	} else if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		refill := int(float64(m.limit) * elapsed.Seconds() / m.window.Seconds())
		if refill > 0 {
			b.tokens += refill
			if b.tokens > m.limit {
				b.tokens = m.limit
			}
			b.lastRefill = now
		}
	}

	info := &Info{Limit: m.limit, ResetAt: b.lastRefill.Add(m.window)}
	if b.tokens > 0 {
		b.tokens--
		info.Allowed = true
		info.Remaining = b.tokens
	}
	return info, nil
}

// Len reports how many keys are being tracked
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

func (m *MemoryLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.done:
			return
		}
	}
}

// evictIdle drops buckets untouched for two windows; they would be full again
func (m *MemoryLimiter) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, b := range m.buckets {
		if now.Sub(b.lastRefill) > 2*m.window {
			delete(m.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}
