package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request from identifier fits the window
type Limiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// RateLimiter provides rate limiting functionality
type RateLimiter struct {
	limiter Limiter
	logger  *logrus.Logger
}

// NewRateLimiter wraps a Limiter as middleware
func NewRateLimiter(limiter Limiter, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{limiter: limiter, logger: logger}
}

// Limit returns a middleware that rate limits requests per client IP
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := "ip:" + ClientIP(r)

		allowed, err := rl.limiter.Allow(r.Context(), identifier)
		if err != nil {
			// fail open, the limiter store being down must not take the API with it
			rl.logger.WithError(err).WithField("client", identifier).Warn("Rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"Too many requests. Please try again later."}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For hop, or the remote address without port
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RedisLimiter is a sliding window over a Redis sorted set, shared by every server process
type RedisLimiter struct {
	redis       *redis.Client
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{redis: client, maxRequests: maxRequests, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := "ratelimit:" + identifier
	now := l.now()
	windowStart := now.Add(-l.window).UnixNano()

	pipe := l.redis.Pipeline()

	// Remove old entries outside the window
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	countCmd := pipe.ZCard(ctx, key)

	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})

	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(l.maxRequests), nil
}

// LocalLimiter keeps a token bucket per identifier in process memory. Used when Redis is
// not configured. Buckets idle for a whole window are full again and get pruned.
type LocalLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
	buckets map[string]*localBucket
}

type localBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLocalLimiter allows maxRequests per window with bursts up to maxRequests
func NewLocalLimiter(maxRequests int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limit:   rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:   maxRequests,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*localBucket),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, identifier string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[identifier]
	if !ok {
		bucket = &localBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[identifier] = bucket
	}
	bucket.seen = now
	return bucket.limiter.AllowN(now, 1), nil
}

// Prune drops buckets not used for a window and returns how many were removed
func (l *LocalLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for id, bucket := range l.buckets {
		if bucket.seen.Before(cutoff) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked identifiers
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Start runs Prune every window until ctx is done
func (l *LocalLimiter) Start(ctx context.Context) {
	if l.window <= 0 {
		return
	}
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}
