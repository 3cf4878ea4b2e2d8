package scheduling

import (
	"sync"
	"time"
)

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
	createdAt time.Time
}

// ResponseCache is a bounded TTL cache for idempotent scheduling API reads.
// Expired entries are dropped lazily on read and proactively by a
// background sweep; when full, the oldest entry is evicted.
type ResponseCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	capacity int

	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

// NewResponseCache builds a cache with the given TTL and capacity.
func NewResponseCache(ttl time.Duration, capacity int) *ResponseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 256
	}
	return &ResponseCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Get returns the cached value for key, or false when absent or expired.
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

// Set stores a value under key with the cache's TTL, evicting the oldest
// entry when at capacity.
func (c *ResponseCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with an explicit TTL.
func (c *ResponseCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	now := c.now()
	c.entries[key] = cacheEntry{data: value, expiresAt: now.Add(ttl), createdAt: now}
}

// Delete removes a key.
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Start launches the periodic eviction sweep.
func (c *ResponseCache) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the sweep goroutine.
func (c *ResponseCache) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *ResponseCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *ResponseCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
