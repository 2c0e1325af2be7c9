// SPDX-License-Identifier: MIT

// Package adminapi serves the operator-facing introspection endpoints:
// the effective (redacted) configuration, the recent-log buffer, and this
// package's own OpenAPI document, validated once at startup so a malformed
// embedded spec fails fast instead of surfacing only when first requested.
package adminapi
