// SPDX-License-Identifier: MIT

package templatestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/harborlane/layoutd/internal/log"
)

// Store is the default coordinator.TemplateFetcher: templates live as
// plain files under Dir, hot-reloaded via fsnotify, with a Badger
// metadata index and singleflight-deduplicated loads.
type Store struct {
	dir     string
	meta    *badger.DB
	group   singleflight.Group
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open starts a Store rooted at dir, with its metadata index at
// badgerPath. The returned Store watches dir for changes until Close is
// called.
func Open(dir, badgerPath string) (*Store, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("templatestore: template dir: %w", err)
	}

	metaDB, err := openMetaDB(badgerPath)
	if err != nil {
		return nil, fmt.Errorf("templatestore: open metadata index: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = metaDB.Close()
		return nil, fmt.Errorf("templatestore: fsnotify.NewWatcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		_ = metaDB.Close()
		return nil, fmt.Errorf("templatestore: watch dir: %w", err)
	}

	s := &Store{dir: dir, meta: metaDB, watcher: watcher, done: make(chan struct{})}
	go s.watch()
	return s, nil
}

// FetchTemplate implements coordinator.TemplateFetcher. ctx is honored
// only for cancellation while waiting on an in-flight singleflight load;
// the underlying file read itself is not cancelable.
func (s *Store) FetchTemplate(ctx context.Context, r *http.Request) (io.ReadCloser, error) {
	key := cacheKey(r.URL.Path)

	type loaded struct {
		body []byte
	}

	resultCh := s.group.DoChan(key, func() (interface{}, error) {
		path, err := resolve(s.dir, r.URL.Path)
		if err != nil {
			return nil, err
		}
		body, err := os.ReadFile(path) // #nosec G304 -- resolve() confines path to dir
		if err != nil {
			return nil, fmt.Errorf("templatestore: read %s: %w", path, err)
		}
		if info, statErr := os.Stat(path); statErr == nil {
			if err := putMeta(s.meta, key, fileMeta{Size: info.Size(), ModTime: info.ModTime()}); err != nil {
				logger := log.WithComponent("templatestore")
				logger.Warn().Err(err).Str("path", path).Msg("metadata index update failed")
			}
		}
		return loaded{body: body}, nil
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return io.NopCloser(bytes.NewReader(res.Val.(loaded).body)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// watch invalidates metadata entries on filesystem changes so a stale
// stat is never served; the file content itself is always re-read on the
// next FetchTemplate call regardless of metadata state; the index exists
// for operational visibility, not as a read cache.
func (s *Store) watch() {
	logger := log.WithComponent("templatestore")
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				rel, err := filepath.Rel(s.dir, event.Name)
				if err != nil {
					continue
				}
				key := cacheKey("/" + rel)
				if err := deleteMeta(s.meta, key); err != nil {
					logger.Warn().Err(err).Str("path", event.Name).Msg("metadata invalidation failed")
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

// Close releases the filesystem watcher and metadata index.
func (s *Store) Close() error {
	close(s.done)
	werr := s.watcher.Close()
	merr := s.meta.Close()
	if werr != nil {
		return werr
	}
	return merr
}
