// SPDX-License-Identifier: MIT

package layout

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

const fragmentTagName = "fragment"

// queuedToken is a token already pulled off the tokenizer but not yet
// turned into an Event, because Parser had to look ahead to decide
// whether a <fragment> start tag owns a body.
type queuedToken struct {
	tt  html.TokenType
	tok html.Token
	raw []byte
}

// Parser incrementally tokenizes a template byte stream into Events. It
// never buffers the whole document: each call to Next consumes only as
// much of the underlying reader as needed to produce one event, plus
// whatever bounded lookahead fragment-body detection requires.
type Parser struct {
	z     *html.Tokenizer
	queue []queuedToken
}

// NewParser wraps r for incremental tokenization. r is read lazily as Next
// is called; it may itself be fed incrementally (e.g. an http.Response
// body still streaming in from a template store).
func NewParser(r io.Reader) *Parser {
	return &Parser{z: html.NewTokenizer(r)}
}

// Next returns the next template event, io.EOF when the stream is
// exhausted, or a parse error for malformed markup. Events already
// returned before an error are not retracted.
func (p *Parser) Next() (Event, error) {
	for {
		tt, tok, raw := p.advance()
		switch tt {
		case html.ErrorToken:
			err := p.z.Err()
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("layout: tokenize: %w", err)

		case html.StartTagToken, html.SelfClosingTagToken:
			if tok.Data != fragmentTagName {
				return Event{Kind: Markup, Raw: raw}, nil
			}
			attrs := attrsOf(tok)
			if tt == html.SelfClosingTagToken {
				return Event{Kind: FragmentPlaceholder, Attrs: attrs}, nil
			}
			p.consumeBody()
			return Event{Kind: FragmentPlaceholder, Attrs: attrs}, nil

		default:
			return Event{Kind: Markup, Raw: raw}, nil
		}
	}
}

// advance returns the next token, preferring anything already buffered by
// consumeBody's lookahead over reading a fresh one from the tokenizer.
func (p *Parser) advance() (html.TokenType, html.Token, []byte) {
	if len(p.queue) > 0 {
		qt := p.queue[0]
		p.queue = p.queue[1:]
		return qt.tt, qt.tok, qt.raw
	}
	return p.readToken()
}

// readToken pulls one token straight from the tokenizer. Raw is copied
// because the tokenizer reuses its internal buffer on the next call.
func (p *Parser) readToken() (html.TokenType, html.Token, []byte) {
	tt := p.z.Next()
	tok := p.z.Token()
	raw := append([]byte(nil), p.z.Raw()...)
	return tt, tok, raw
}

// consumeBody looks ahead from a bare <fragment> start tag for its own
// matching </fragment>, discarding anything in between as the paired
// form's ignored body. <fragment> is otherwise void: if lookahead runs
// into a sibling <fragment> start tag or end of input before finding a
// close of its own, nothing is discarded — the looked-ahead tokens are
// requeued so the caller processes them normally. A <fragment> start tag
// never nests, so a sibling start tag seen mid-lookahead ends the search
// rather than extending it.
func (p *Parser) consumeBody() {
	var buffered []queuedToken
	for {
		tt, tok, raw := p.readToken()
		switch {
		case tt == html.ErrorToken:
			p.requeue(append(buffered, queuedToken{tt, tok, raw}))
			return
		case tt == html.EndTagToken && tok.Data == fragmentTagName:
			return
		case (tt == html.StartTagToken || tt == html.SelfClosingTagToken) && tok.Data == fragmentTagName:
			p.requeue(append(buffered, queuedToken{tt, tok, raw}))
			return
		default:
			buffered = append(buffered, queuedToken{tt, tok, raw})
		}
	}
}

func (p *Parser) requeue(tokens []queuedToken) {
	p.queue = append(tokens, p.queue...)
}

// attrsOf copies attribute keys and values verbatim. Keys arrive already
// lowercased: the tokenizer lowercases attribute names on every tag,
// fragment included, so no lowercasing is done here.
func attrsOf(tok html.Token) map[string]string {
	if len(tok.Attr) == 0 {
		return map[string]string{}
	}
	attrs := make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}
