package worker

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a key's bucket survives without requests
const DefaultIdleTTL = 10 * time.Minute

// Limiter implements per-key rate limiting. Keys are caller identities
// such as an API client address or the batch runner. Buckets of keys
// that stay idle longer than the idle TTL are evicted.
type Limiter struct {
	limiters     *gocache.Cache
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate means unlimited.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return newLimiter(requestsPerSecond, burst, DefaultIdleTTL)
}

func newLimiter(requestsPerSecond float64, burst int, idleTTL time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	// an evicted key restarts with a full bucket, so idling must outlast a refill
	if requestsPerSecond > 0 {
		if refill := time.Duration(float64(burst) / requestsPerSecond * float64(time.Second)); idleTTL < refill {
			idleTTL = refill
		}
	}

	return &Limiter{
		limiters:     gocache.New(idleTTL, idleTTL),
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

// getLimiter returns the rate limiter for a key and refreshes its idle deadline
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		limiter := v.(*rate.Limiter)
		l.limiters.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	if err := l.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		// created concurrently
		if v, ok := l.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Keys returns the number of live keys
func (l *Limiter) Keys() int {
	return len(l.limiters.Items())
}
