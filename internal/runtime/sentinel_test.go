// SPDX-License-Identifier: MIT

package runtime

import (
	"io"
	"strings"
	"testing"

	"github.com/harborlane/layoutd/internal/layout"
)

func TestOutcome_InlineBlock_WithScriptLinkAndCSS(t *testing.T) {
	desc := layout.Descriptor{Index: 0}
	outcome := &Outcome{
		Status:     200,
		Body:       io.NopCloser(strings.NewReader("hello")),
		CSSLinks:   []string{"http://link"},
		ScriptLink: "http://link2",
	}

	block, _ := io.ReadAll(outcome.InlineBlock(desc, "p"))
	got := string(block)
	want := `<link rel="stylesheet" href="http://link"><script data-pipe>p.start(0, "http://link2")</script>hello<script data-pipe>p.end(0, "http://link2")</script>`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestOutcome_InlineBlock_NoScriptLinkNoBody(t *testing.T) {
	desc := layout.Descriptor{Index: 1}
	outcome := &Outcome{Status: 200}

	block, _ := io.ReadAll(outcome.InlineBlock(desc, "p"))
	got := string(block)
	want := `<script data-pipe>p.start(1)</script><script data-pipe>p.end(1)</script>`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestOutcome_AsyncBlock_CSSBecomesLoadCSS(t *testing.T) {
	desc := layout.Descriptor{Index: 0}
	outcome := &Outcome{
		Body:       io.NopCloser(strings.NewReader("hello")),
		CSSLinks:   []string{"http://link"},
		ScriptLink: "http://link2",
	}

	block, _ := io.ReadAll(outcome.AsyncBlock(desc, "p"))
	got := string(block)
	want := `<script>p.loadCSS("http://link")</script><script data-pipe>p.start(0, "http://link2")</script>hello<script data-pipe>p.end(0, "http://link2")</script>`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPlaceholderSentinel(t *testing.T) {
	got := string(PlaceholderSentinel("p", 3))
	want := `<script data-pipe>p.placeholder(3)</script>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
