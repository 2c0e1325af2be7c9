// SPDX-License-Identifier: MIT

package runtime

import (
	"bytes"
	"fmt"
	"io"

	"github.com/harborlane/layoutd/internal/layout"
)

func startSentinel(pipeName string, index int, scriptLink string) []byte {
	if scriptLink != "" {
		return []byte(fmt.Sprintf(`<script data-pipe>%s.start(%d, "%s")</script>`, pipeName, index, scriptLink))
	}
	return []byte(fmt.Sprintf(`<script data-pipe>%s.start(%d)</script>`, pipeName, index))
}

func endSentinel(pipeName string, index int, scriptLink string) []byte {
	if scriptLink != "" {
		return []byte(fmt.Sprintf(`<script data-pipe>%s.end(%d, "%s")</script>`, pipeName, index, scriptLink))
	}
	return []byte(fmt.Sprintf(`<script data-pipe>%s.end(%d)</script>`, pipeName, index))
}

// PlaceholderSentinel is emitted at an async fragment's position in the
// template, immediately, before its fetch has resolved.
func PlaceholderSentinel(pipeName string, index int) []byte {
	return []byte(fmt.Sprintf(`<script data-pipe>%s.placeholder(%d)</script>`, pipeName, index))
}

func cssLinkTag(url string) []byte {
	return []byte(fmt.Sprintf(`<link rel="stylesheet" href="%s">`, url))
}

func loadCSSScript(pipeName, url string) []byte {
	return []byte(fmt.Sprintf(`<script>%s.loadCSS("%s")</script>`, pipeName, url))
}

// InlineBlock renders the bytes emitted at an inline fragment's position:
// stylesheet links, the start sentinel, the body, and the end sentinel.
func (o *Outcome) InlineBlock(desc layout.Descriptor, pipeName string) io.Reader {
	var readers []io.Reader
	for _, url := range o.CSSLinks {
		readers = append(readers, bytes.NewReader(cssLinkTag(url)))
	}
	readers = append(readers, bytes.NewReader(startSentinel(pipeName, desc.Index, o.ScriptLink)))
	if o.Body != nil {
		readers = append(readers, o.Body)
	}
	readers = append(readers, bytes.NewReader(endSentinel(pipeName, desc.Index, o.ScriptLink)))
	return io.MultiReader(readers...)
}

// AsyncBlock renders the bytes flushed after the template ends for an
// async fragment: stylesheet links become loadCSS calls in place of
// <link> tags, otherwise identical in shape to InlineBlock.
func (o *Outcome) AsyncBlock(desc layout.Descriptor, pipeName string) io.Reader {
	var readers []io.Reader
	for _, url := range o.CSSLinks {
		readers = append(readers, bytes.NewReader(loadCSSScript(pipeName, url)))
	}
	readers = append(readers, bytes.NewReader(startSentinel(pipeName, desc.Index, o.ScriptLink)))
	if o.Body != nil {
		readers = append(readers, o.Body)
	}
	readers = append(readers, bytes.NewReader(endSentinel(pipeName, desc.Index, o.ScriptLink)))
	return io.MultiReader(readers...)
}
