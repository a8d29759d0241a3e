package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"
)

type cacheEntry struct {
	result     bool
	expiresAt  time.Time
	accessedAt time.Time
}

// Cache memoizes overlap results keyed on the event's recurrence data and the
// queried range.
type Cache struct {
	entries         map[string]*cacheEntry
	mutex           sync.Mutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewCache creates a cache and starts its cleanup goroutine. Close stops it.
func NewCache(config CacheConfig) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	cache := &Cache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

func cacheKey(span Span, info Info, start, end mo.Option[time.Time]) string {
	hasher := sha256.New()
	write := func(t time.Time) {
		hasher.Write([]byte(t.Format(time.RFC3339Nano)))
		hasher.Write([]byte{0})
	}

	write(span.Start)
	write(span.End)
	hasher.Write([]byte(info.RRULE))
	hasher.Write([]byte{0})
	for _, t := range info.RDATE {
		write(t)
	}
	hasher.Write([]byte{1})
	for _, t := range info.EXDATE {
		write(t)
	}
	hasher.Write([]byte{1})
	for _, bound := range []mo.Option[time.Time]{start, end} {
		if t, ok := bound.Get(); ok {
			write(t)
		} else {
			hasher.Write([]byte("open"))
		}
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *Cache) Get(key string) (bool, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false, false
	}
	now := time.Now()
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return false, false
	}
	entry.accessedAt = now
	return entry.result, true
}

// Set stores a result in the cache
func (c *Cache) Set(key string, result bool) {
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		result:     result,
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanup(now)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// cleanup removes expired entries, then the least recently used ones while the
// cache is over its limit. The caller holds the mutex.
func (c *Cache) cleanup(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].accessedAt.Before(c.entries[keys[j]].accessedAt)
	})
	for _, key := range keys[:len(c.entries)-c.maxEntries] {
		delete(c.entries, key)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.mutex.Lock()
			c.cleanup(now)
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}
