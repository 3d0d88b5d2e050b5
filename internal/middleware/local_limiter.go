package middleware

import (
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/larder/larder/internal/cache"
)

// DefaultLocalLimiterSize bounds the keys tracked by a LocalLimiter.
const DefaultLocalLimiterSize = 10000

// LocalLimiter is an in-process token bucket per key. The least recently
// seen keys are evicted once size is reached.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache
}

// NewLocalLimiter creates a LocalLimiter tracking at most size keys.
func NewLocalLimiter(size int) (*LocalLimiter, error) {
	if size <= 0 {
		size = DefaultLocalLimiterSize
	}
	limiters, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LocalLimiter{limiters: limiters}, nil
}

// Check consumes one token for key.
func (l *LocalLimiter) Check(key string, perSecond float64, burst int) *cache.RateLimitResult {
	if burst < 1 {
		burst = 1
	}

	l.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()

	now := time.Now()
	allowed := limiter.AllowN(now, 1)
	tokens := limiter.TokensAt(now)

	result := &cache.RateLimitResult{
		Allowed:   allowed,
		Remaining: int64(math.Max(0, math.Floor(tokens))),
		ResetAt:   now.Add(time.Duration(float64(time.Second) / perSecond)),
	}
	if !allowed {
		result.RetryAfter = time.Duration(math.Ceil((1-tokens)/perSecond)) * time.Second
	}
	return result
}

// Len returns the number of tracked keys.
func (l *LocalLimiter) Len() int {
	return l.limiters.Len()
}
