// SPDX-License-Identifier: MIT

package audit

import "github.com/harborlane/layoutd/internal/persistence/sqlite"

// VerifyIntegrity runs SQLite's built-in integrity check against the audit
// database file. mode is "quick" or "full"; a nil, nil result means healthy.
func VerifyIntegrity(dbPath, mode string) ([]string, error) {
	return sqlite.VerifyIntegrity(dbPath, mode)
}
