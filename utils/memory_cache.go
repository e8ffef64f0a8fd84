package utils

import (
	"strings"
	"sync"
	"time"
)

// CacheItem represents a cached item with expiration
type CacheItem[V any] struct {
	Value      V
	Expiration time.Time
}

// MemoryCache is an in-memory TTL cache keyed by string.
type MemoryCache[V any] struct {
	items map[string]*CacheItem[V]
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache whose entries live for ttl.
// Call Close to stop the cleanup goroutine.
func NewMemoryCache[V any](ttl time.Duration) *MemoryCache[V] {
	cache := &MemoryCache[V]{
		items: make(map[string]*CacheItem[V]),
		ttl:   ttl,
		now:   time.Now,
		done:  make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Set stores a value using the cache TTL
func (c *MemoryCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem[V]{
		Value:      value,
		Expiration: c.now().Add(c.ttl),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if c.now().After(item.Expiration) {
		c.Delete(key)
		return zero, false
	}
	return item.Value, true
}

// Delete removes an item from cache
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and returns how
// many were removed.
func (c *MemoryCache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Clear removes all items from cache
func (c *MemoryCache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*CacheItem[V])
	c.mu.Unlock()
}

// Size returns the number of items in cache, expired or not
func (c *MemoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *MemoryCache[V]) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

// cleanup removes expired items
func (c *MemoryCache[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.Expiration) {
			delete(c.items, key)
		}
	}
}
