// SPDX-License-Identifier: MIT

package contextstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/harborlane/layoutd/internal/cache"
)

// Store implements coordinator.ContextFetcher over an internal/cache.Cache,
// keyed by request path. A cache miss means "no overrides" rather than an
// error: composition proceeds with every fragment's raw template attributes.
type Store struct {
	Cache cache.Cache
}

// New wraps c as a ContextFetcher.
func New(c cache.Cache) *Store {
	return &Store{Cache: c}
}

// FetchContext looks up the override map cached for r.URL.Path. ctx is
// unused: internal/cache.Cache has no context-aware methods, matching the
// teacher's own cache interface.
func (s *Store) FetchContext(_ context.Context, r *http.Request) (map[string]map[string]string, error) {
	val, ok := s.Cache.Get(r.URL.Path)
	if !ok {
		return nil, nil
	}
	overrides, err := toOverrideMap(val)
	if err != nil {
		return nil, fmt.Errorf("contextstore: decode override for %s: %w", r.URL.Path, err)
	}
	return overrides, nil
}

// toOverrideMap converts the any value produced by Cache.Get's JSON
// round-trip (map[string]interface{} with nested map[string]interface{})
// into the concrete shape BuildDescriptor expects.
func toOverrideMap(val any) (map[string]map[string]string, error) {
	raw, ok := val.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", val)
	}

	overrides := make(map[string]map[string]string, len(raw))
	for fragmentID, attrsVal := range raw {
		attrsRaw, ok := attrsVal.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("fragment %q: expected object, got %T", fragmentID, attrsVal)
		}
		attrs := make(map[string]string, len(attrsRaw))
		for k, v := range attrsRaw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("fragment %q attribute %q: expected string, got %T", fragmentID, k, v)
			}
			attrs[k] = s
		}
		overrides[fragmentID] = attrs
	}
	return overrides, nil
}
