package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultPrefix namespaces cache keys in a shared Redis
const DefaultPrefix = "movieflix:cache:"

// RedisCache shares responses across server processes using native key expiry
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *logrus.Logger
}

func NewRedisCache(client *redis.Client, prefix string, logger *logrus.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

// Get treats Redis errors as misses
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		misses.WithLabelValues("redis").Inc()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		misses.WithLabelValues("redis").Inc()
		return nil, false
	}
	hits.WithLabelValues("redis").Inc()
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis cache delete failed")
	}
}

// Stats scans the prefix. Memory usage is the sum of value sizes.
func (c *RedisCache) Stats(ctx context.Context) Stats {
	stats := Stats{Backend: "redis", Keys: []string{}}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		stats.Keys = append(stats.Keys, strings.TrimPrefix(full, c.prefix))
		if n, err := c.client.StrLen(ctx, full).Result(); err == nil {
			stats.MemoryUsage += n + int64(len(full))
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).Warn("Redis cache scan failed")
	}

	sort.Strings(stats.Keys)
	stats.Size = len(stats.Keys)
	return stats
}
