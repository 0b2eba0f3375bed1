package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) fresh(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

// MemoryCache is a TTL map for a single server process. No size bound.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	logger  *logrus.Logger
}

// NewMemoryCache creates an empty cache
func NewMemoryCache(logger *logrus.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the clock, for tests
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// Get returns the value while it is fresh. Stale entries are evicted.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		misses.WithLabelValues("memory").Inc()
		return nil, false
	}
	if !e.fresh(c.now()) {
		delete(c.entries, key)
		misses.WithLabelValues("memory").Inc()
		return nil, false
	}
	hits.WithLabelValues("memory").Inc()
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now(), ttl: ttl}
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Cleanup evicts all expired entries and returns how many were removed
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !e.fresh(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Start runs Cleanup every interval until ctx is done
func (c *MemoryCache) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = CleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Cleanup(); removed > 0 {
				c.logger.WithField("removed", removed).Debug("Evicted expired cache entries")
			}
		}
	}
}

// Stats reports size, sorted keys and the bytes held by keys and values
func (c *MemoryCache) Stats(_ context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{Backend: "memory", Size: len(c.entries), Keys: make([]string, 0, len(c.entries))}
	for key, e := range c.entries {
		stats.Keys = append(stats.Keys, key)
		stats.MemoryUsage += int64(len(key) + len(e.value))
	}
	sort.Strings(stats.Keys)
	return stats
}
