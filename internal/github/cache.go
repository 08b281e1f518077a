package github

import (
	"sync"
	"time"
)

// DefaultCacheCapacity: максимальное число записей кэша.
const DefaultCacheCapacity = 500

type cacheEntry struct {
	data    any
	expires time.Time
}

// Cache: TTL-кэш ответов удалённого хоста с ограниченной ёмкостью.
// При переполнении сначала удаляются истёкшие записи, затем запись, истекающая раньше всех.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	capacity int
	now      func() time.Time
}

// NewCache создаёт кэш. capacity <= 0 => DefaultCacheCapacity.
func NewCache(capacity int, now func() time.Time) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:  make(map[string]cacheEntry),
		capacity: capacity,
		now:      now,
	}
}

// Get возвращает значение, если запись есть и не истекла.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

// Set сохраняет значение на ttl.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{data: data, expires: c.now().Add(ttl)}
	if len(c.entries) > c.capacity {
		c.evictLocked()
	}
}

// Len возвращает число записей, включая ещё не удалённые истёкшие.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) > c.capacity {
		var oldestKey string
		var oldest time.Time
		first := true
		for key, entry := range c.entries {
			if first || entry.expires.Before(oldest) || (entry.expires.Equal(oldest) && key < oldestKey) {
				oldestKey, oldest, first = key, entry.expires, false
			}
		}
		delete(c.entries, oldestKey)
	}
}
