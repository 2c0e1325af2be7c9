// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for layoutd.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the service.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Fragment attributes
	FragmentIndexKey   = "fragment.index"
	FragmentIDKey      = "fragment.id"
	FragmentURLKey     = "fragment.url"
	FragmentAsyncKey   = "fragment.async"
	FragmentPrimaryKey = "fragment.primary"
	FragmentTimeoutKey = "fragment.timeout_ms"

	// Composition attributes
	CompositionTemplateKey     = "composition.template"
	CompositionFragmentsKey    = "composition.fragment_count"
	CompositionStatusKey       = "composition.status_code"
	CompositionDurationKey     = "composition.duration_ms"
	CompositionTimedOutKey     = "composition.timed_out_count"
	CompositionFallbackUsedKey = "composition.fallback_used"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// FragmentAttributes creates span attributes for a single fragment fetch.
func FragmentAttributes(index int, id, url string, async, primary bool, timeoutMS int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(FragmentIndexKey, index),
		attribute.String(FragmentURLKey, url),
		attribute.Bool(FragmentAsyncKey, async),
		attribute.Bool(FragmentPrimaryKey, primary),
		attribute.Int(FragmentTimeoutKey, timeoutMS),
	}
	if id != "" {
		attrs = append(attrs, attribute.String(FragmentIDKey, id))
	}
	return attrs
}

// CompositionAttributes creates span attributes summarizing a completed
// composition request.
func CompositionAttributes(template string, fragmentCount, statusCode, timedOutCount int, durationMS int64, fallbackUsed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CompositionTemplateKey, template),
		attribute.Int(CompositionFragmentsKey, fragmentCount),
		attribute.Int(CompositionStatusKey, statusCode),
		attribute.Int(CompositionTimedOutKey, timedOutCount),
		attribute.Int64(CompositionDurationKey, durationMS),
		attribute.Bool(CompositionFallbackUsedKey, fallbackUsed),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
