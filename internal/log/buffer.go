// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"sync"
)

const (
	maxPartialBytes = 64 * 1024
	maxLineBytes    = 32 * 1024
	maxRecentLogs   = 200
)

// RecentLog is a single structured log line retained for admin introspection.
type RecentLog struct {
	Fields map[string]interface{}
	Raw    string
}

// BufferMetrics counts lines dropped by structuredBufferWriter and why.
type BufferMetrics struct {
	DroppedPartialOverflow int
	DroppedTooLargeLines   int
	DroppedIrrelevant      int
}

var (
	recentMu      sync.Mutex
	recentLogs    []RecentLog
	bufferMetrics BufferMetrics
)

// structuredBufferWriter tees complete JSON log lines into an in-memory ring
// buffer for the admin introspection endpoint, keeping only lines relevant
// to auditing (component=audit or event=request.handled).
type structuredBufferWriter struct {
	partial bytes.Buffer
}

func (w *structuredBufferWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.partial.Write(p)

	if w.partial.Len() > maxPartialBytes {
		recentMu.Lock()
		bufferMetrics.DroppedPartialOverflow++
		recentMu.Unlock()
		w.partial.Reset()
		return n, nil
	}

	for {
		buf := w.partial.Bytes()
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, buf[:idx])
		w.partial.Next(idx + 1)
		w.handleLine(line)
	}
	return n, nil
}

func (w *structuredBufferWriter) handleLine(line []byte) {
	if len(line) == 0 {
		return
	}
	if len(line) > maxLineBytes {
		recentMu.Lock()
		bufferMetrics.DroppedTooLargeLines++
		recentMu.Unlock()
		return
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(line, &fields); err != nil {
		return
	}

	if !isRelevant(fields) {
		recentMu.Lock()
		bufferMetrics.DroppedIrrelevant++
		recentMu.Unlock()
		return
	}

	entry := RecentLog{Fields: fields, Raw: string(line)}

	recentMu.Lock()
	recentLogs = append(recentLogs, entry)
	if len(recentLogs) > maxRecentLogs {
		recentLogs = recentLogs[len(recentLogs)-maxRecentLogs:]
	}
	recentMu.Unlock()
}

func isRelevant(fields map[string]interface{}) bool {
	if component, ok := fields["component"].(string); ok && component == "audit" {
		return true
	}
	if event, ok := fields["event"].(string); ok && event == "request.handled" {
		return true
	}
	return false
}

// GetRecentLogs returns a copy of the buffered relevant log lines.
func GetRecentLogs() []RecentLog {
	recentMu.Lock()
	defer recentMu.Unlock()
	out := make([]RecentLog, len(recentLogs))
	copy(out, recentLogs)
	return out
}

// ClearRecentLogs empties the recent-log buffer and resets drop counters.
func ClearRecentLogs() {
	recentMu.Lock()
	defer recentMu.Unlock()
	recentLogs = nil
	bufferMetrics = BufferMetrics{}
}

// GetBufferMetrics returns the current drop counters for the recent-log buffer.
func GetBufferMetrics() BufferMetrics {
	recentMu.Lock()
	defer recentMu.Unlock()
	return bufferMetrics
}
