// SPDX-License-Identifier: MIT

package assembler

import (
	"io"

	"github.com/harborlane/layoutd/internal/layout"
	"github.com/harborlane/layoutd/internal/runtime"
)

// PendingFragment links a fragment descriptor to the in-flight future
// that will resolve its fetch outcome. The coordinator constructs one per
// placeholder and hands it to the assembler alongside the translated
// event stream.
type PendingFragment struct {
	Descriptor layout.Descriptor
	Future     *runtime.Future
}

// Assembler serializes template events and fragment outcomes into one
// ordered byte stream.
type Assembler struct {
	PipeName string
}

// New returns an Assembler using pipeName for client-runtime sentinels.
func New(pipeName string) *Assembler {
	return &Assembler{PipeName: pipeName}
}

// Run drains events in order, writing markup verbatim and fragment blocks
// at their placeholder position. Inline fragments block the stream until
// their future resolves; async fragments emit a placeholder sentinel
// immediately and are flushed, in template order, once events is
// exhausted. Run returns as soon as w.Write returns an error (a slow or
// disconnected client naturally back-pressures here since the underlying
// writer blocks or errors on its own I/O boundary).
func (a *Assembler) Run(w io.Writer, events <-chan layout.Event, pending map[int]*PendingFragment) error {
	var asyncQueue []*PendingFragment

	for ev := range events {
		switch ev.Kind {
		case layout.Markup:
			if _, err := w.Write(ev.Raw); err != nil {
				return err
			}
		case layout.FragmentPlaceholder:
			pf := pending[ev.Index]
			if pf == nil {
				continue
			}
			if pf.Descriptor.Async {
				if _, err := w.Write(runtime.PlaceholderSentinel(a.PipeName, pf.Descriptor.Index)); err != nil {
					return err
				}
				asyncQueue = append(asyncQueue, pf)
				continue
			}
			if err := a.writeBlock(w, pf, false); err != nil {
				return err
			}
		}
	}

	for _, pf := range asyncQueue {
		if err := a.writeBlock(w, pf, true); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) writeBlock(w io.Writer, pf *PendingFragment, async bool) error {
	outcome := pf.Future.Wait()
	defer outcome.Close()

	block := outcome.InlineBlock(pf.Descriptor, a.PipeName)
	if async {
		block = outcome.AsyncBlock(pf.Descriptor, a.PipeName)
	}
	_, err := io.Copy(w, block)
	return err
}
