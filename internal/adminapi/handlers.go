// SPDX-License-Identifier: MIT

package adminapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/harborlane/layoutd/internal/config"
	"github.com/harborlane/layoutd/internal/log"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Server serves the operator-facing introspection endpoints: the
// effective (redacted) configuration, the recent-log buffer, and this
// package's own OpenAPI document.
type Server struct {
	holder *config.Holder
	doc    *openapi3.T
}

// New validates the embedded OpenAPI document once, at construction, so
// a malformed spec fails fast at startup instead of surfacing only when
// an operator first requests /debug/openapi.json.
func New(holder *config.Holder) (*Server, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("adminapi: parse embedded openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("adminapi: embedded openapi document invalid: %w", err)
	}
	return &Server{holder: holder, doc: doc}, nil
}

// Routes registers the introspection endpoints on mux under /debug.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/config", s.handleConfig)
	mux.HandleFunc("/debug/openapi.json", s.handleOpenAPI)
	mux.HandleFunc("/debug/logs", s.handleLogs)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Get()
	redacted := config.MaskSecrets(cfg)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(redacted); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "adminapi")
		logger.Error().Err(err).Msg("encode /debug/config failed")
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.doc); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "adminapi")
		logger.Error().Err(err).Msg("encode /debug/openapi.json failed")
	}
}

type logsResponse struct {
	Logs    []log.RecentLog   `json:"logs"`
	Dropped log.BufferMetrics `json:"dropped"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	resp := logsResponse{
		Logs:    log.GetRecentLogs(),
		Dropped: log.GetBufferMetrics(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "adminapi")
		logger.Error().Err(err).Msg("encode /debug/logs failed")
	}
}
