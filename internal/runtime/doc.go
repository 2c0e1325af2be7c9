// SPDX-License-Identifier: MIT

// Package runtime owns one fragment's lifecycle: fetch, fallback, and the
// client-runtime sentinels wrapped around its body.
package runtime
