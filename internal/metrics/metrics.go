// SPDX-License-Identifier: MIT

// Package metrics holds the composition-domain Prometheus metrics: one
// layer below internal/control/middleware's generic HTTP metrics, scoped
// to fragment fetch outcomes and whole-response composition outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FragmentFetchDuration records how long one fragment's fetch attempt
	// (primary or fallback) took, labeled by outcome so timeouts and
	// server errors are distinguishable from successes in a histogram.
	FragmentFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "layoutd",
		Name:      "fragment_fetch_duration_seconds",
		Help:      "Upstream fragment fetch latency in seconds, labeled by outcome",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	// FragmentOutcomes counts terminal fragment outcomes.
	FragmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layoutd",
		Name:      "fragment_outcomes_total",
		Help:      "Total fragment fetch outcomes by classification",
	}, []string{"outcome"})

	// CompositionDuration records the total time from request start to the
	// last byte written to the client, labeled by final status code.
	CompositionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "layoutd",
		Name:      "composition_duration_seconds",
		Help:      "Total composition request duration in seconds, labeled by final status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	// CompositionFragmentCount records how many fragments a composed
	// response declared, regardless of outcome.
	CompositionFragmentCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "layoutd",
		Name:      "composition_fragment_count",
		Help:      "Number of fragment placeholders per composed response",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})
)

// Outcome labels for FragmentFetchDuration/FragmentOutcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeFallback     = "fallback"
	OutcomeTimeout      = "timeout"
	OutcomeNetworkError = "network_error"
	OutcomeServerError  = "server_error"
	OutcomeEmpty        = "empty"
	OutcomeErrored      = "errored"
)
