// SPDX-License-Identifier: MIT

package version

var (
	// Version is the current application version, populated by the build
	// system via ldflags.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
