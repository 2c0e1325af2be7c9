// SPDX-License-Identifier: MIT

package runtime

import (
	"context"
	"net/http"
	"time"

	"github.com/harborlane/layoutd/internal/layout"
	"github.com/harborlane/layoutd/internal/metrics"
	"github.com/harborlane/layoutd/internal/upstream"
)

// Runtime drives one fragment through NEW -> FETCHING -> (STREAMING |
// FALLBACK? -> FETCHING(fallback) -> ...) -> STREAMING | EMPTY | FAIL.
type Runtime struct {
	Descriptor layout.Descriptor
	Fetcher    *upstream.Fetcher
}

// New builds a Runtime for one fragment descriptor.
func New(desc layout.Descriptor, fetcher *upstream.Fetcher) *Runtime {
	return &Runtime{Descriptor: desc, Fetcher: fetcher}
}

// FetchAsync starts the fragment's fetch in the background and returns
// immediately with a Future that resolves once the state machine reaches
// a terminal state (STREAMING, EMPTY, or FAIL).
func (r *Runtime) FetchAsync(ctx context.Context, headers http.Header) *Future {
	future := NewFuture()
	go func() {
		future.Resolve(r.attempt(ctx, headers))
	}()
	return future
}

func (r *Runtime) attempt(ctx context.Context, headers http.Header) *Outcome {
	timeout := time.Duration(r.Descriptor.TimeoutMs) * time.Millisecond

	start := time.Now()
	result, err := r.Fetcher.Fetch(ctx, r.Descriptor.Src, headers, timeout)
	if err == nil {
		observeFetch(metrics.OutcomeSuccess, start)
		return successOutcome(result, false)
	}
	observeFetch(failureOutcomeLabel(err), start)
	timedOut := isTimeout(err)

	if r.Descriptor.FallbackSrc != "" {
		fbStart := time.Now()
		fbResult, fbErr := r.Fetcher.Fetch(ctx, r.Descriptor.FallbackSrc, headers, timeout)
		if fbErr == nil {
			observeFetch(metrics.OutcomeFallback, fbStart)
			return successOutcome(fbResult, true)
		}
		observeFetch(failureOutcomeLabel(fbErr), fbStart)
		timedOut = isTimeout(fbErr)
	}

	if r.Descriptor.Primary {
		metrics.FragmentOutcomes.WithLabelValues(metrics.OutcomeErrored).Inc()
		return &Outcome{Errored: true, TimedOut: timedOut}
	}
	// EMPTY: non-primary failures collapse silently to a 200, empty slot.
	metrics.FragmentOutcomes.WithLabelValues(metrics.OutcomeEmpty).Inc()
	return &Outcome{Status: http.StatusOK, TimedOut: timedOut}
}

func observeFetch(outcome string, start time.Time) {
	metrics.FragmentFetchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	metrics.FragmentOutcomes.WithLabelValues(outcome).Inc()
}

func failureOutcomeLabel(err error) string {
	fe, ok := err.(*upstream.FetchError)
	if !ok {
		return metrics.OutcomeNetworkError
	}
	switch fe.Kind {
	case upstream.FailureTimeout:
		return metrics.OutcomeTimeout
	case upstream.FailureServerError:
		return metrics.OutcomeServerError
	default:
		return metrics.OutcomeNetworkError
	}
}

func successOutcome(r *upstream.Result, usedFallback bool) *Outcome {
	return &Outcome{
		Status:       r.Status,
		Location:     r.Location,
		Body:         r.Body,
		CSSLinks:     r.CSSLinks,
		ScriptLink:   r.ScriptLink,
		UsedFallback: usedFallback,
	}
}

func isTimeout(err error) bool {
	fe, ok := err.(*upstream.FetchError)
	return ok && fe.Kind == upstream.FailureTimeout
}
