// SPDX-License-Identifier: MIT

// Package ratelimit throttles outbound fetches on a per-upstream-host
// basis, so one slow or chatty fragment host cannot starve the fetcher's
// connection budget for every other upstream.
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "layoutd",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total outbound requests rejected or delayed by the per-host rate limiter",
	},
	[]string{"host"},
)

// Config holds per-upstream-host throttling parameters.
type Config struct {
	PerHostRate     rate.Limit
	PerHostBurst    int
	CleanupInterval time.Duration
}

// DefaultConfig returns conservative per-host defaults.
func DefaultConfig() Config {
	return Config{
		PerHostRate:     10,
		PerHostBurst:    20,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter manages one token-bucket limiter per upstream host.
type Limiter struct {
	config Config

	mu          sync.Mutex
	perHost     map[string]*rate.Limiter
	lastCleanup time.Time
}

// New creates a Limiter with the given config.
func New(config Config) *Limiter {
	return &Limiter{
		config:      config,
		perHost:     make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether an immediate request to host is permitted, without
// blocking. Used by fetch paths that would rather fail fast than wait.
func (l *Limiter) Allow(host string) bool {
	l.maybeCleanup()
	ok := l.limiterFor(host).Allow()
	if !ok {
		rateLimitExceeded.WithLabelValues(host).Inc()
	}
	return ok
}

// Wait blocks until a request to host is permitted or ctx is done. The
// fetcher calls this before dialing an upstream fragment or context source.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.limiterFor(host).Wait(ctx)
}

// HostOf extracts the throttling key (hostname, no port) from an upstream URL.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.perHost[host]
	if !ok {
		limiter = rate.NewLimiter(l.config.PerHostRate, l.config.PerHostBurst)
		l.perHost[host] = limiter
	}
	return limiter
}

// maybeCleanup periodically drops all per-host limiters so hosts that have
// stopped receiving traffic don't accumulate forever.
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	l.perHost = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}
