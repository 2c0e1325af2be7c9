// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Composition fields
	FieldTemplatePath = "template_path"
	FieldFragmentID   = "fragment_id"
	FieldUpstreamURL  = "upstream_url"
	FieldPrimary      = "primary"
	FieldAsync        = "async"
	FieldStatus       = "status"
	FieldDurationMS   = "duration_ms"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
