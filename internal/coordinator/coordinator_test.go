// SPDX-License-Identifier: MIT

package coordinator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harborlane/layoutd/internal/upstream"
)

type templateFetcherFunc func(ctx context.Context, r *http.Request) (io.ReadCloser, error)

func (f templateFetcherFunc) FetchTemplate(ctx context.Context, r *http.Request) (io.ReadCloser, error) {
	return f(ctx, r)
}

type contextFetcherFunc func(ctx context.Context, r *http.Request) (map[string]map[string]string, error)

func (f contextFetcherFunc) FetchContext(ctx context.Context, r *http.Request) (map[string]map[string]string, error) {
	return f(ctx, r)
}

func staticTemplate(body string) TemplateFetcher {
	return templateFetcherFunc(func(ctx context.Context, r *http.Request) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	})
}

func staticContext(overrides map[string]map[string]string) ContextFetcher {
	return contextFetcherFunc(func(ctx context.Context, r *http.Request) (map[string]map[string]string, error) {
		return overrides, nil
	})
}

func emptyContext() ContextFetcher {
	return staticContext(nil)
}

func newCoordinator(templateBody string, contexts ContextFetcher) (*Coordinator, *upstream.Fetcher) {
	fetcher := upstream.NewFetcher(nil, nil, "X-Zalando-")
	cfg := Config{PipeName: "p", InlineTimeoutMs: 1000, AsyncTimeoutMs: 10000}
	return New(staticTemplate(templateBody), contexts, fetcher, cfg), fetcher
}

func serverReturning(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

// Scenario 1.
func TestHandle_TwoInlineFragments(t *testing.T) {
	one := serverReturning(http.StatusOK, "hello")
	defer one.Close()
	two := serverReturning(http.StatusOK, "world")
	defer two.Close()

	tmpl := `<html><fragment id="f-1" src="` + one.URL + `" /><fragment id="f-2" src="` + two.URL + `" /></html>`
	c, _ := newCoordinator(tmpl, emptyContext())

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := `<html><script data-pipe>p.start(0)</script>hello<script data-pipe>p.end(0)</script>` +
		`<script data-pipe>p.start(1)</script>world<script data-pipe>p.end(1)</script></html>`
	if rec.Body.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", rec.Body.String(), want)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-cache, no-store, must-revalidate" {
		t.Errorf("missing Cache-Control header")
	}
	if rec.Header().Get("Pragma") != "no-cache" {
		t.Errorf("missing Pragma header")
	}
}

// Scenario 2: two primaries, first in template order wins.
func TestHandle_FirstPrimaryWins(t *testing.T) {
	nonPrimary := serverReturning(http.StatusOK, "ignored")
	defer nonPrimary.Close()
	firstPrimary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://redirect")
		w.WriteHeader(http.StatusMultipleChoices)
	}))
	defer firstPrimary.Close()
	secondPrimary := serverReturning(http.StatusInternalServerError, "")
	defer secondPrimary.Close()

	tmpl := `<fragment src="` + nonPrimary.URL + `" /><fragment src="` + firstPrimary.URL + `" primary /><fragment src="` + secondPrimary.URL + `" primary />`
	c, _ := newCoordinator(tmpl, emptyContext())

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusMultipleChoices {
		t.Errorf("expected status 300, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "https://redirect" {
		t.Errorf("expected Location header from first primary, got %q", rec.Header().Get("Location"))
	}
}

// Scenario 3: Link header stylesheet + fragment-script, inline.
func TestHandle_InlineLinkHeaderHints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<http://link>; rel="stylesheet",<http://link2>; rel="fragment-script"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	tmpl := `<fragment src="` + srv.URL + `" />`
	c, _ := newCoordinator(tmpl, emptyContext())

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `<link rel="stylesheet" href="http://link">`) {
		t.Errorf("missing stylesheet link, got: %s", body)
	}
	wantStart := `<script data-pipe>p.start(0, "http://link2")</script>`
	if !strings.Contains(body, wantStart) {
		t.Errorf("missing start sentinel with script link, got: %s", body)
	}
	if strings.Index(body, `<link`) > strings.Index(body, wantStart) {
		t.Errorf("expected stylesheet link before start sentinel, got: %s", body)
	}
}

// Scenario 4: same as 3 but async.
func TestHandle_AsyncLinkHeaderHints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<http://link>; rel="stylesheet",<http://link2>; rel="fragment-script"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	tmpl := `<html><fragment src="` + srv.URL + `" async /></html>`
	c, _ := newCoordinator(tmpl, emptyContext())

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := `<html><script data-pipe>p.placeholder(0)</script></html>` +
		`<script>p.loadCSS("http://link")</script><script data-pipe>p.start(0, "http://link2")</script>hello<script data-pipe>p.end(0, "http://link2")</script>`
	if rec.Body.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", rec.Body.String(), want)
	}
}

// Scenario 5: non-primary timeout collapses to an empty slot.
func TestHandle_NonPrimaryTimeoutCollapsesToEmpty(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(101 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()
	alsoSlow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer alsoSlow.Close()

	tmpl := `<html><fragment src="` + slow.URL + `" timeout="100" /><fragment src="` + alsoSlow.URL + `" timeout="150" /></html>`
	c, _ := newCoordinator(tmpl, emptyContext())

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := `<html><script data-pipe>p.start(0)</script><script data-pipe>p.end(0)</script>` +
		`<script data-pipe>p.start(1)</script><script data-pipe>p.end(1)</script></html>`
	if rec.Body.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", rec.Body.String(), want)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

// Scenario 6: primary timeout yields a 500 with an empty body.
func TestHandle_PrimaryTimeoutYields500(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(101 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	tmpl := `<html><fragment src="` + slow.URL + `" primary timeout="100" /></html>`
	c, _ := newCoordinator(tmpl, emptyContext())

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body on primary failure, got: %q", rec.Body.String())
	}
}

// Scenario 7: context override changes behavior without mutating the raw
// template attributes.
func TestHandle_ContextOverride(t *testing.T) {
	defaultSrv := serverReturning(http.StatusOK, "no")
	defer defaultSrv.Close()
	overrideSrv := serverReturning(http.StatusOK, "yes")
	defer overrideSrv.Close()

	tmpl := `<fragment async="false" primary id="f-1" src="` + defaultSrv.URL + `" />`
	overrides := staticContext(map[string]map[string]string{
		"f-1": {"src": overrideSrv.URL, "primary": "false", "async": "true"},
	})

	c, _ := newCoordinator(tmpl, overrides)
	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Body.String(), "yes") {
		t.Errorf("expected overridden src's body, got: %s", rec.Body.String())
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected default 200 since override disables primary, got %d", rec.Code)
	}

	// A subsequent request with empty context must restore original
	// (primary, inline, default src) behavior.
	c2, _ := newCoordinator(tmpl, emptyContext())
	rec2 := httptest.NewRecorder()
	c2.Handle(rec2, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec2.Body.String(), "no") {
		t.Errorf("expected default src's body on unrelated request, got: %s", rec2.Body.String())
	}
}

func TestHandle_TemplateFetchErrorYields500(t *testing.T) {
	fetcher := upstream.NewFetcher(nil, nil, "X-Zalando-")
	failing := templateFetcherFunc(func(ctx context.Context, r *http.Request) (io.ReadCloser, error) {
		return nil, io.ErrUnexpectedEOF
	})
	c := New(failing, emptyContext(), fetcher, Config{PipeName: "p", InlineTimeoutMs: 1000, AsyncTimeoutMs: 10000})

	rec := httptest.NewRecorder()
	c.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
