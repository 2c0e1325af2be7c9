// SPDX-License-Identifier: MIT

// Package layout tokenizes a composition template into an ordered event
// stream and builds fragment descriptors from the placeholders it finds.
package layout
