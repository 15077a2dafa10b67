package ai

import (
	"sync"
	"time"
)

// DefaultCacheCapacity bounds the generation cache. Twenty distinct
// fingerprints covers a dashboard session comfortably.
const DefaultCacheCapacity = 20

// CacheEvent names for the metrics hook.
const (
	CacheEventHit   = "hit"
	CacheEventMiss  = "miss"
	CacheEventStore = "store"
	CacheEventEvict = "evict"
)

type cacheEntry struct {
	result    GenerationResult
	expiresAt time.Time
}

// Cache is a bounded FIFO cache of generation results keyed by content
// fingerprint. TTL is optional; zero means entries live until evicted
// by capacity. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	items    map[string]cacheEntry
	order    []string
	capacity int
	ttl      time.Duration
	onEvent  func(event string)
}

func NewCache(capacity int, ttl time.Duration, onEvent func(event string)) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		items:    make(map[string]cacheEntry, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		onEvent:  onEvent,
	}
}

func (c *Cache) Get(key string) (GenerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.items, key)
		c.removeFromOrder(key)
		ok = false
	}
	if !ok {
		c.emit(CacheEventMiss)
		return GenerationResult{}, false
	}
	c.emit(CacheEventHit)
	return e.result, true
}

func (c *Cache) Set(key string, result GenerationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{result: result}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}

	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.emit(CacheEventStore)

	for len(c.items) > c.capacity && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
		c.emit(CacheEventEvict)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) emit(event string) {
	if c.onEvent != nil {
		c.onEvent(event)
	}
}
