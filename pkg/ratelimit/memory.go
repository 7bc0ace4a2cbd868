package ratelimit

import (
	"context"
	"sync"
	"time"
)

// windowEntry tracks one key's counter within its current window
type windowEntry struct {
	count       int64
	windowStart time.Time
}

// MemoryLimiter implements fixed-window rate limiting with in-memory storage
type MemoryLimiter struct {
	data      map[string]*windowEntry
	limit     int64
	window    time.Duration
	mu        sync.Mutex
	clock     Clock
	cleanup   *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryLimiter creates a new in-memory fixed-window rate limiter.
// cleanupInterval controls how often expired windows are swept
// (0 to disable, recommended: 1 minute).
func NewMemoryLimiter(limit int64, window, cleanupInterval time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		data:   make(map[string]*windowEntry),
		limit:  limit,
		window: window,
		clock:  &SystemClock{},
		done:   make(chan struct{}),
	}

	// Start cleanup goroutine if cleanup interval is specified
	if cleanupInterval > 0 {
		m.cleanup = time.NewTicker(cleanupInterval)
		go m.cleanupLoop()
	}

	return m
}

// WithClock sets a custom clock (for testing)
func (m *MemoryLimiter) WithClock(clock Clock) *MemoryLimiter {
	m.clock = clock
	return m
}

// Allow checks if a single request is allowed for the given key
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return m.AllowN(ctx, key, 1)
}

// AllowN checks if N requests are allowed for the given key.
// Windows reset lazily: the first request after a window elapses starts a
// fresh one. Denied requests do not consume quota.
func (m *MemoryLimiter) AllowN(_ context.Context, key string, n int64) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	entry, exists := m.data[key]
	if !exists || now.Sub(entry.windowStart) >= m.window {
		entry = &windowEntry{windowStart: now}
		m.data[key] = entry
	}

	reset := entry.windowStart.Add(m.window)

	if entry.count+n > m.limit {
		remaining := m.limit - entry.count
		if remaining < 0 {
			remaining = 0
		}
		return &Result{
			Allowed:    false,
			Limit:      m.limit,
			Remaining:  remaining,
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}, nil
	}

	entry.count += n
	return &Result{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: m.limit - entry.count,
		Reset:     reset,
	}, nil
}

// cleanupLoop removes expired windows periodically
func (m *MemoryLimiter) cleanupLoop() {
	for {
		select {
		case <-m.cleanup.C:
			m.removeExpired()
		case <-m.done:
			return
		}
	}
}

// removeExpired deletes entries whose window has elapsed
func (m *MemoryLimiter) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for key, entry := range m.data {
		if now.Sub(entry.windowStart) >= m.window {
			delete(m.data, key)
		}
	}
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (m *MemoryLimiter) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		if m.cleanup != nil {
			m.cleanup.Stop()
		}
	})
	return nil
}
