// SPDX-License-Identifier: MIT

package coordinator

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/harborlane/layoutd/internal/assembler"
	"github.com/harborlane/layoutd/internal/audit"
	"github.com/harborlane/layoutd/internal/layout"
	"github.com/harborlane/layoutd/internal/log"
	"github.com/harborlane/layoutd/internal/metrics"
	"github.com/harborlane/layoutd/internal/runtime"
	"github.com/harborlane/layoutd/internal/upstream"
)

// AuditRecorder persists a durable record of one completed composition
// request. Optional: a nil Coordinator.Recorder skips audit logging
// entirely.
type AuditRecorder interface {
	Record(ctx context.Context, rec audit.Record) error
}

// TemplateFetcher obtains the raw template bytes for a request. Template
// acquisition policy (caching, origin selection) is an external concern.
type TemplateFetcher interface {
	FetchTemplate(ctx context.Context, r *http.Request) (io.ReadCloser, error)
}

// ContextFetcher obtains per-fragment attribute overrides for a request,
// keyed by fragment id.
type ContextFetcher interface {
	FetchContext(ctx context.Context, r *http.Request) (map[string]map[string]string, error)
}

// Config carries the coordinator's fixed, per-instance settings.
type Config struct {
	PipeName        string
	PipeDefinition  []byte
	InlineTimeoutMs int
	AsyncTimeoutMs  int
}

// Coordinator is the request-scoped orchestrator (component F): it
// obtains template and context in parallel, drives the parser, spawns a
// fragment runtime per placeholder, and streams the assembled output
// under the primary-fragment status rule.
type Coordinator struct {
	Templates TemplateFetcher
	Contexts  ContextFetcher
	Fetcher   *upstream.Fetcher
	Config    Config

	// Recorder, if set, receives one audit.Record per completed request.
	Recorder AuditRecorder
}

// New builds a Coordinator.
func New(templates TemplateFetcher, contexts ContextFetcher, fetcher *upstream.Fetcher, cfg Config) *Coordinator {
	return &Coordinator{Templates: templates, Contexts: contexts, Fetcher: fetcher, Config: cfg}
}

type templateFetchResult struct {
	body io.ReadCloser
	err  error
}

type contextFetchResult struct {
	overrides map[string]map[string]string
	err       error
}

// Handle is the coordinator's one public operation.
func (c *Coordinator) Handle(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "coordinator")
	start := time.Now()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "text/html")

	templateCh := make(chan templateFetchResult, 1)
	contextCh := make(chan contextFetchResult, 1)
	go func() {
		body, err := c.Templates.FetchTemplate(ctx, r)
		templateCh <- templateFetchResult{body: body, err: err}
	}()
	go func() {
		overrides, err := c.Contexts.FetchContext(ctx, r)
		contextCh <- contextFetchResult{overrides: overrides, err: err}
	}()

	tmplRes := <-templateCh
	ctxRes := <-contextCh

	if tmplRes.err != nil {
		logger.Error().Err(tmplRes.err).Msg("template fetch failed")
		http.Error(w, "template unavailable", http.StatusInternalServerError)
		return
	}
	defer tmplRes.body.Close()

	if ctxRes.err != nil {
		logger.Error().Err(ctxRes.err).Msg("context fetch failed")
		http.Error(w, "context unavailable", http.StatusInternalServerError)
		return
	}

	gate := newHeadGate(w)
	if len(c.Config.PipeDefinition) > 0 {
		_, _ = gate.Write(c.Config.PipeDefinition)
	}

	rawEvents := make(chan layout.Event, 16)
	parseErrCh := make(chan error, 1)
	go func() {
		defer close(rawEvents)
		p := layout.NewParser(tmplRes.body)
		for {
			ev, err := p.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				parseErrCh <- err
				return
			}
			rawEvents <- ev
		}
	}()

	pending := map[int]*assembler.PendingFragment{}
	translated := make(chan layout.Event, 16)

	var primaryFound bool
	var primaryIndex = -1
	var primaryWG sync.WaitGroup

	go func() {
		defer close(translated)
		index := 0
		for ev := range rawEvents {
			if ev.Kind != layout.FragmentPlaceholder {
				translated <- ev
				continue
			}

			idx := index
			index++
			desc := layout.BuildDescriptor(idx, ev.Attrs, ctxRes.overrides[ev.Attrs["id"]], c.Config.InlineTimeoutMs, c.Config.AsyncTimeoutMs)
			rt := runtime.New(desc, c.Fetcher)
			future := rt.FetchAsync(ctx, r.Header)
			pending[idx] = &assembler.PendingFragment{Descriptor: desc, Future: future}

			if desc.Primary && !primaryFound {
				primaryFound = true
				primaryIndex = idx
				primaryWG.Add(1)
				go watchPrimary(&primaryWG, gate, cancel, future)
			}

			translated <- layout.Event{Kind: layout.FragmentPlaceholder, Index: idx}
		}
	}()

	asm := assembler.New(c.Config.PipeName)
	if err := asm.Run(gate, translated, pending); err != nil {
		logger.Debug().Err(err).Msg("assembler stopped early")
	}

	primaryWG.Wait()

	if !primaryFound {
		select {
		case <-parseErrCh:
			gate.Fail(http.StatusInternalServerError)
		default:
			gate.Activate(http.StatusOK, "")
		}
	}

	status := gate.Status()
	metrics.CompositionDuration.WithLabelValues(strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	metrics.CompositionFragmentCount.Observe(float64(len(pending)))

	if c.Recorder != nil {
		c.record(r, status, start, primaryIndex, pending)
	}
}

// record builds and persists an audit.Record from the resolved fragment
// futures. By this point every future has either been consumed by the
// assembler or resolved independently via the primary watcher, so Wait
// returns immediately.
func (c *Coordinator) record(r *http.Request, status int, start time.Time, primaryIndex int, pending map[int]*assembler.PendingFragment) {
	fragments := make([]audit.FragmentOutcome, 0, len(pending))
	for idx := 0; idx < len(pending); idx++ {
		pf := pending[idx]
		if pf == nil {
			continue
		}
		outcome := pf.Future.Wait()
		fragments = append(fragments, audit.FragmentOutcome{
			Index:        idx,
			ID:           pf.Descriptor.ID,
			URL:          pf.Descriptor.Src,
			Primary:      pf.Descriptor.Primary,
			Async:        pf.Descriptor.Async,
			Status:       outcome.Status,
			TimedOut:     outcome.TimedOut,
			Errored:      outcome.Errored,
			UsedFallback: outcome.UsedFallback,
		})
	}

	rec := audit.Record{
		RequestID:     log.RequestIDFromContext(r.Context()),
		Path:          r.URL.Path,
		Timestamp:     start,
		StatusCode:    status,
		FragmentCount: len(pending),
		PrimaryIndex:  primaryIndex,
		DurationMS:    time.Since(start).Milliseconds(),
		Fragments:     fragments,
	}
	if err := c.Recorder.Record(context.Background(), rec); err != nil {
		logger := log.WithComponent("coordinator")
		logger.Warn().Err(err).Msg("audit record failed")
	}
}

func watchPrimary(wg *sync.WaitGroup, gate *headGate, cancel context.CancelFunc, future *runtime.Future) {
	defer wg.Done()
	outcome := future.Wait()
	if outcome.Errored {
		gate.Fail(http.StatusInternalServerError)
		cancel()
		return
	}
	gate.Activate(outcome.Status, outcome.Location)
}
