package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/cache"
	"github.com/larder/larder/internal/handler"
	"github.com/larder/larder/internal/metrics"
)

// RateLimiter is the shared, Redis-backed token bucket.
type RateLimiter interface {
	CheckUserRateLimit(ctx context.Context, userID int64, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	// Fallback, when set, limits per process while the shared limiter is
	// unreachable. Without it such requests are allowed.
	Fallback *LocalLimiter
	Metrics  metrics.Recorder

	// Per-user limit on the recipe API.
	UserEnabled   bool
	UserPerMinute int
	UserBurst     int

	// Per-IP limit on the auth endpoints.
	IPEnabled bool
	IPRPS     int
	IPBurst   int
}

// RateLimitUser returns middleware that rate limits per authenticated user.
// Must be applied after Auth middleware.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.UserEnabled || cfg.UserPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			userID := auth.UserIDFromContext(r.Context())
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckUserRateLimit(r.Context(), userID, cfg.UserPerMinute, cfg.UserBurst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.Int64("user_id", userID),
				)
				result = cfg.fallback("user:"+strconv.FormatInt(userID, 10), float64(cfg.UserPerMinute)/60, cfg.UserBurst)
			}

			setRateLimitHeaders(w, cfg.UserPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.reject(w, r, "user", result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Used on the auth endpoints to slow credential stuffing.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.IPEnabled || cfg.IPRPS <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.IPRPS, cfg.IPBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
				)
				result = cfg.fallback("ip:"+ip, float64(cfg.IPRPS), cfg.IPBurst)
			}

			if !result.Allowed {
				cfg.reject(w, r, "ip", result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (cfg RateLimitConfig) fallback(key string, perSecond float64, burst int) *cache.RateLimitResult {
	if cfg.Fallback == nil {
		return &cache.RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now().Add(time.Minute)}
	}
	return cfg.Fallback.Check(key, perSecond, burst)
}

func (cfg RateLimitConfig) reject(w http.ResponseWriter, r *http.Request, scope string, retryAfter time.Duration) {
	if cfg.Metrics != nil {
		cfg.Metrics.IncRateLimitRejected(scope)
	}

	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	cfg.Logger.Warn("rate limit exceeded",
		slog.String("type", scope),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", seconds),
		slog.String("request_id", GetRequestID(r.Context())),
	)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	handler.WriteError(w, http.StatusTooManyRequests, handler.CodeRateLimited,
		"Rate limit exceeded. Retry after "+strconv.Itoa(seconds)+" seconds.")
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// clientIP returns the host part of RemoteAddr. Proxy headers are resolved
// earlier by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
