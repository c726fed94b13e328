package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/gradelens/internal/cache"
	"github.com/ppiankov/gradelens/internal/pipeline"
)

// DefaultLimiterIdle is how long an unused bucket is kept
const DefaultLimiterIdle = 10 * time.Minute

// Limiter implements keyed token-bucket rate limiting. Keys are remote
// hosts for batch fetches and client addresses for the HTTP API. Buckets
// idle for longer than the idle TTL are dropped; a recreated bucket starts
// full, which is where an idle bucket would have refilled to anyway.
type Limiter struct {
	limiters     *cache.Store[*rate.Limiter]
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables
// limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return NewLimiterWithIdle(requestsPerSecond, burst, DefaultLimiterIdle)
}

// NewLimiterWithIdle creates a limiter that forgets keys unused for idle
func NewLimiterWithIdle(requestsPerSecond float64, burst int, idle time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if idle <= 0 {
		idle = DefaultLimiterIdle
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     cache.NewStore[*rate.Limiter](idle, idle),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until key may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// getLimiter returns the bucket for key, creating it when absent, and
// restarts its idle timer.
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters.Touch(key); ok {
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters.Set(key, limiter)
	return limiter
}

// Len returns the number of tracked keys, including idle ones not yet purged
func (l *Limiter) Len() int {
	return l.limiters.Len()
}

// SourceKey returns the host of an http(s) source, or "" for local paths
// which are never rate limited.
func SourceKey(source string) (string, error) {
	if !pipeline.IsRemote(source) {
		return "", nil
	}
	parsed, err := url.Parse(source)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
