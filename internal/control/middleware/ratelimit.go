// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for the downstream client-facing rate
// limiting middleware.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	KeyFunc      func(r *http.Request) (string, error)
}

// RateLimit creates a sliding-window rate limiting middleware using httprate.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.WindowSize.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"too many requests, slow down"}`))
		}),
	)
}

// APIRateLimit returns a rate limiter guarding the composition endpoints
// against a single client issuing a disproportionate share of requests.
// Requests from whitelisted IPs (e.g. internal load balancer health probes)
// bypass the limit entirely.
func APIRateLimit(enabled bool, rps, burst int, whitelist []string) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if rps <= 0 {
		rps = 60
	}
	if burst <= 0 {
		burst = rps
	}
	exempt := make(map[string]struct{}, len(whitelist))
	for _, ip := range whitelist {
		exempt[ip] = struct{}{}
	}

	limiter := RateLimit(RateLimitConfig{
		RequestLimit: rps + burst,
		WindowSize:   time.Minute,
	})

	return func(next http.Handler) http.Handler {
		wrapped := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _ := httprate.KeyByIP(r)
			if _, ok := exempt[ip]; ok {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}
