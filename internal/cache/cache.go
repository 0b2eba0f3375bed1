// Package cache holds short-lived upstream responses keyed by request signature.
package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TTLs per operation
const (
	SearchTTL   = 5 * time.Minute
	TrendingTTL = 10 * time.Minute
	DiscoverTTL = 15 * time.Minute
	DetailsTTL  = 30 * time.Minute
	GenresTTL   = 30 * time.Minute
	OMDBTTL     = 30 * time.Minute

	// CleanupInterval is how often the janitor sweeps expired entries
	CleanupInterval = 5 * time.Minute
)

// Cache stores serialized responses. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Stats(ctx context.Context) Stats
}

// Stats describes the cache contents
type Stats struct {
	Backend     string   `json:"backend"`
	Size        int      `json:"size"`
	Keys        []string `json:"keys"`
	MemoryUsage int64    `json:"memoryUsage"`
}

var (
	hits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movieflix_cache_hits_total",
		Help: "Response cache hits",
	}, []string{"backend"})

	misses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movieflix_cache_misses_total",
		Help: "Response cache misses, including expired entries",
	}, []string{"backend"})
)
