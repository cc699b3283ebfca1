// Package cache provides a TTL key/value cache with namespace-scoped
// bulk invalidation, used for search result caching.
package cache

import (
	"sync"
	"time"
)

// Entry is a single cached value. Entries are created on miss,
// overwritten whole on recompute and removed on expiry or namespace
// clear; they are never partially updated.
type Entry struct {
	Key       string
	Value     any
	ExpiresAt time.Time
	Namespace string
}

// Cache is a flat key space with lazy TTL expiry. Namespaces tag
// entries for bulk eviction only; they play no part in key identity.
//
// There is no background sweep: an expired entry is dropped the next
// time it is read. Stale entries occupy negligible memory relative to
// call volume, and lazy expiry avoids any scheduling machinery.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// NewWithClock creates a cache with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Get returns the value at key when present and unexpired. An expired
// entry reads as a miss and is removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if current, ok := c.entries[key]; ok && c.now().After(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key with the given TTL, overwriting any
// existing entry regardless of its namespace. Concurrent sets on the
// same key are last-write-wins; cached values are derived, re-computable
// data, never source of truth.
func (c *Cache) Set(key string, value any, ttl time.Duration, namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: c.now().Add(ttl),
		Namespace: namespace,
	}
}

// Delete removes the entry at key, if any.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// ClearNamespace removes every entry tagged with the namespace. Cost is
// linear in total entry count; eviction is rare next to reads.
func (c *Cache) ClearNamespace(namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.Namespace == namespace {
			delete(c.entries, key)
		}
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
