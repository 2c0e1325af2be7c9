// SPDX-License-Identifier: MIT

package coordinator

import (
	"bytes"
	"net/http"
	"sync"
)

type gateState int

const (
	gatePending gateState = iota
	gateOpen
	gateFailed
)

// headGate withholds the client response head until the decisive primary
// fragment (if any) has resolved. Writes made while pending are buffered;
// Activate flushes the buffer and writes the resolved status; Fail
// discards the buffer entirely and writes an error status with no body,
// per the primary-failure propagation rule. All methods are safe for
// concurrent use: the assembler's writer goroutine and the primary
// watcher goroutine both call into the same gate.
type headGate struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	buf     bytes.Buffer
	state   gateState
	status  int
}

func newHeadGate(w http.ResponseWriter) *headGate {
	flusher, _ := w.(http.Flusher)
	return &headGate{w: w, flusher: flusher}
}

func (g *headGate) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case gatePending:
		return g.buf.Write(p)
	case gateFailed:
		return len(p), nil
	default:
		n, err := g.w.Write(p)
		if err == nil && g.flusher != nil {
			g.flusher.Flush()
		}
		return n, err
	}
}

// Activate opens the gate: any buffered prefix flushes immediately after
// the resolved status/Location are written.
func (g *headGate) Activate(status int, location string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != gatePending {
		return
	}
	g.state = gateOpen
	g.status = status
	if location != "" {
		g.w.Header().Set("Location", location)
	}
	g.w.WriteHeader(status)
	if g.buf.Len() > 0 {
		_, _ = g.w.Write(g.buf.Bytes())
		g.buf.Reset()
	}
	if g.flusher != nil {
		g.flusher.Flush()
	}
}

// Fail aborts the response with status and discards any buffered prefix.
// It is a no-op once the gate has already opened successfully: a primary
// resolving after headers were already committed some other way cannot
// retroactively change the response.
func (g *headGate) Fail(status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != gatePending {
		return
	}
	g.state = gateFailed
	g.status = status
	g.buf.Reset()
	g.w.WriteHeader(status)
}

// Status returns the status code the gate resolved to, once opened or
// failed. Zero if still pending.
func (g *headGate) Status() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}
