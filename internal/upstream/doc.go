// SPDX-License-Identifier: MIT

// Package upstream issues the single-attempt HTTP fetch behind one
// fragment: header whitelist forwarding, timeout/failure classification,
// and Link-header parsing for asset hints.
package upstream
