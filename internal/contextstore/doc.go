// SPDX-License-Identifier: MIT

// Package contextstore is the default coordinator.ContextFetcher: it
// reads a per-request fragment attribute override map from an
// internal/cache.Cache, normally Redis-backed so that a fleet of layoutd
// instances shares the same override state.
package contextstore
