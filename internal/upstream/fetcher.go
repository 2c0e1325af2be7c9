// SPDX-License-Identifier: MIT

package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harborlane/layoutd/internal/netutil"
	"github.com/harborlane/layoutd/internal/ratelimit"
)

// FailureKind classifies why a fetch did not produce a usable result.
type FailureKind int

const (
	// FailureNetwork covers connection errors and malformed request URLs.
	FailureNetwork FailureKind = iota
	// FailureTimeout means no response head arrived within the fragment's
	// timeout, distinguishable from a network-level connection error.
	FailureTimeout
	// FailureServerError means the upstream responded with status >= 500.
	FailureServerError
)

// FetchError reports a classified fetch failure.
type FetchError struct {
	Kind   FailureKind
	Status int // set only for FailureServerError
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FailureTimeout:
		return "upstream: timed out"
	case FailureServerError:
		return fmt.Sprintf("upstream: server error (status %d)", e.Status)
	default:
		return fmt.Sprintf("upstream: network error: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Result is the outcome of one successful fetch: a response head with
// status in [200,499], plus any asset hints parsed from Link headers.
type Result struct {
	Status     int
	Location   string
	Body       io.ReadCloser
	CSSLinks   []string
	ScriptLink string
}

// Fetcher issues single-attempt upstream GETs.
type Fetcher struct {
	Client             *http.Client
	Limiter            *ratelimit.Limiter
	ForwardedHeaderOrg string

	// OutboundPolicy, when non-nil and Enabled, is checked against every
	// fragment/fallback URL before the fetcher dials. A nil policy (or one
	// with Enabled false) performs no SSRF allowlist check at all.
	OutboundPolicy *netutil.OutboundPolicy
}

// NewFetcher builds a Fetcher with sane defaults for the given client and
// forwarded-header org prefix (e.g. "X-Zalando-"). limiter may be nil.
func NewFetcher(client *http.Client, limiter *ratelimit.Limiter, forwardedHeaderOrg string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{Client: client, Limiter: limiter, ForwardedHeaderOrg: forwardedHeaderOrg}
}

// WithOutboundPolicy sets the SSRF allowlist policy enforced before every
// fetch and returns f for chaining.
func (f *Fetcher) WithOutboundPolicy(policy *netutil.OutboundPolicy) *Fetcher {
	f.OutboundPolicy = policy
	return f
}

// Fetch performs one GET against rawURL under timeout, forwarding the
// whitelisted subset of clientHeaders. On failure the connection is
// aborted and any partial body discarded; the caller never sees a
// half-read body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, clientHeaders http.Header, timeout time.Duration) (*Result, error) {
	if rawURL == "" {
		return nil, &FetchError{Kind: FailureNetwork, Err: errors.New("empty fragment src")}
	}

	if f.OutboundPolicy != nil && f.OutboundPolicy.Enabled {
		validated, err := netutil.ValidateOutboundURL(ctx, rawURL, *f.OutboundPolicy)
		if err != nil {
			return nil, &FetchError{Kind: FailureNetwork, Err: fmt.Errorf("outbound policy: %w", err)}
		}
		rawURL = validated
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx, ratelimit.HostOf(rawURL)); err != nil {
			return nil, &FetchError{Kind: FailureNetwork, Err: err}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FailureNetwork, Err: err}
	}
	req.Header = ForwardHeaders(clientHeaders, f.ForwardedHeaderOrg)

	resp, err := f.Client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &FetchError{Kind: FailureTimeout, Err: err}
		}
		return nil, &FetchError{Kind: FailureNetwork, Err: err}
	}

	if resp.StatusCode >= 500 {
		_ = resp.Body.Close()
		return nil, &FetchError{Kind: FailureServerError, Status: resp.StatusCode}
	}

	cssLinks, scriptLink := extractAssetHints(resp.Header.Get("Link"), resp.Header.Get("X-Amz-Meta-Link"))

	return &Result{
		Status:     resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		Body:       resp.Body,
		CSSLinks:   cssLinks,
		ScriptLink: scriptLink,
	}, nil
}
