package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Counter increments a key inside a fixed window, returning the count
// after the increment.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimit enforces a fixed-window per-client limit backed by Redis.
// Counter failures fail open: an unreachable Redis should degrade
// observability, not availability.
func RateLimit(counter Counter, cfg RateLimitConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "ratelimit").Logger()

	if cfg.Requests <= 0 {
		cfg.Requests = 500
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + clientIP(r)

			count, err := counter.Incr(r.Context(), key, cfg.Window)
			if err != nil {
				log.Warn().Err(err).Msg("Rate limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(cfg.Requests) {
				log.Debug().Str("key", key).Int64("count", count).Msg("Rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests, please try again later."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// Behind chained proxies the header is a comma-separated list;
		// the first entry is the originating client.
		if i := strings.Index(forwarded, ","); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
