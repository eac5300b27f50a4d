package cache

import (
	"context"
	"sync"
	"time"
)

type Entry[T any] struct {
	Value     T
	StoredAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the entry is past its deadline. A zero ExpiresAt never expires.
func (e Entry[T]) IsExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(e.ExpiresAt)
}

// Cache is a TTL map safe for concurrent use. When maxEntries is set, the
// oldest stored entry is evicted to make room for a new key.
type Cache[T any] struct {
	mu         sync.RWMutex
	entries    map[string]Entry[T]
	ttl        time.Duration
	maxEntries int
}

func New[T any](ttl time.Duration) *Cache[T] {
	return NewBounded[T](ttl, 0)
}

// NewBounded creates a cache holding at most maxEntries keys (0 = unbounded).
func NewBounded[T any](ttl time.Duration, maxEntries int) *Cache[T] {
	return &Cache[T]{
		entries:    make(map[string]Entry[T]),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.IsExpired() {
		var zero T
		return zero, false
	}
	return entry.Value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = Entry[T]{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: expiresAt,
	}
}

func (c *Cache[T]) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if entry.IsExpired() {
			delete(c.entries, key)
			return
		}
		if oldestKey == "" || entry.StoredAt.Before(oldest) {
			oldestKey, oldest = key, entry.StoredAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry[T])
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[T]) CleanExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.IsExpired() {
			delete(c.entries, key)
		}
	}
}

// Janitor runs CleanExpired every interval until ctx is done.
func (c *Cache[T]) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanExpired()
		}
	}
}
