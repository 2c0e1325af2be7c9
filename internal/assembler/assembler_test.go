// SPDX-License-Identifier: MIT

package assembler

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/harborlane/layoutd/internal/layout"
	"github.com/harborlane/layoutd/internal/runtime"
)

func resolvedFuture(o *runtime.Outcome) *runtime.Future {
	f := runtime.NewFuture()
	f.Resolve(o)
	return f
}

func markup(s string) layout.Event {
	return layout.Event{Kind: layout.Markup, Raw: []byte(s)}
}

func placeholder(index int) layout.Event {
	return layout.Event{Kind: layout.FragmentPlaceholder, Index: index}
}

// Scenario 1 from the composition contract: two inline fragments in
// template order, both succeeding.
func TestAssembler_TwoInlineFragmentsInTemplateOrder(t *testing.T) {
	events := make(chan layout.Event, 4)
	events <- markup("<html>")
	events <- placeholder(0)
	events <- placeholder(1)
	events <- markup("</html>")
	close(events)

	pending := map[int]*PendingFragment{
		0: {Descriptor: layout.Descriptor{Index: 0}, Future: resolvedFuture(&runtime.Outcome{
			Status: 200, Body: io.NopCloser(strings.NewReader("hello")),
		})},
		1: {Descriptor: layout.Descriptor{Index: 1}, Future: resolvedFuture(&runtime.Outcome{
			Status: 200, Body: io.NopCloser(strings.NewReader("world")),
		})},
	}

	var buf bytes.Buffer
	if err := New("p").Run(&buf, events, pending); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := `<html><script data-pipe>p.start(0)</script>hello<script data-pipe>p.end(0)</script>` +
		`<script data-pipe>p.start(1)</script>world<script data-pipe>p.end(1)</script></html>`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

// Scenario 4: an async fragment's placeholder appears at its template
// position, but its block flushes only after the template ends.
func TestAssembler_AsyncFragmentFlushesAfterTemplate(t *testing.T) {
	events := make(chan layout.Event, 3)
	events <- markup("<html>")
	events <- placeholder(0)
	events <- markup("</html>")
	close(events)

	pending := map[int]*PendingFragment{
		0: {Descriptor: layout.Descriptor{Index: 0, Async: true}, Future: resolvedFuture(&runtime.Outcome{
			Status:     200,
			Body:       io.NopCloser(strings.NewReader("hello")),
			CSSLinks:   []string{"http://link"},
			ScriptLink: "http://link2",
		})},
	}

	var buf bytes.Buffer
	if err := New("p").Run(&buf, events, pending); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := `<html><script data-pipe>p.placeholder(0)</script></html>` +
		`<script>p.loadCSS("http://link")</script><script data-pipe>p.start(0, "http://link2")</script>hello<script data-pipe>p.end(0, "http://link2")</script>`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

// Ordering is preserved even when fragment i+1 resolves before fragment i.
func TestAssembler_OrderingHoldsRegardlessOfResolutionOrder(t *testing.T) {
	events := make(chan layout.Event, 2)
	events <- placeholder(0)
	events <- placeholder(1)
	close(events)

	slowFuture := runtime.NewFuture()
	go func() {
		slowFuture.Resolve(&runtime.Outcome{Status: 200, Body: io.NopCloser(strings.NewReader("first"))})
	}()

	pending := map[int]*PendingFragment{
		0: {Descriptor: layout.Descriptor{Index: 0}, Future: slowFuture},
		1: {Descriptor: layout.Descriptor{Index: 1}, Future: resolvedFuture(&runtime.Outcome{
			Status: 200, Body: io.NopCloser(strings.NewReader("second")),
		})},
	}

	var buf bytes.Buffer
	if err := New("p").Run(&buf, events, pending); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(buf.String(), "first") || strings.Index(buf.String(), "first") > strings.Index(buf.String(), "second") {
		t.Errorf("expected fragment 0's body before fragment 1's, got: %s", buf.String())
	}
}
