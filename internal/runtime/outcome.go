// SPDX-License-Identifier: MIT

package runtime

import "io"

// Outcome is the resolved result of one fragment's fetch, ready to be
// wrapped in client-runtime sentinels by the assembler.
type Outcome struct {
	Status       int
	Location     string
	Body         io.ReadCloser // nil for empty/failed slots
	CSSLinks     []string
	ScriptLink   string
	UsedFallback bool
	TimedOut     bool
	Errored      bool
}

// Close releases the body stream, if any. Safe to call on an Outcome
// whose body was never opened or was already fully consumed by a block
// reader (Body.Close is idempotent on http response bodies).
func (o *Outcome) Close() {
	if o != nil && o.Body != nil {
		_ = o.Body.Close()
	}
}
