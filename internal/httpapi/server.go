// Package httpapi serves the depicts search over a small JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/commons-depicts/pkg/depicts"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/Sternrassler/commons-depicts/pkg/metrics"
	"github.com/Sternrassler/commons-depicts/pkg/search"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Searcher is the part of search.Service the API exposes.
type Searcher interface {
	Search(ctx context.Context, query string, page int) (*search.Result, error)
	GetDetail(ctx context.Context, identifier string) (*depicts.EnrichedItem, error)
	Suggest(ctx context.Context, prefix string) ([]depicts.EntityLabel, error)
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// Server routes HTTP requests to a Searcher.
type Server struct {
	svc     Searcher
	health  HealthFunc
	timeout time.Duration
	mux     *http.ServeMux
}

// New creates a Server. health may be nil. timeout bounds each API request;
// zero leaves it to the client's context.
func New(svc Searcher, health HealthFunc, timeout time.Duration) *Server {
	s := &Server{
		svc:     svc,
		health:  health,
		timeout: timeout,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/file/{id}", s.handleDetail)
	s.mux.HandleFunc("GET /api/wikidata_search", s.handleSuggest)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	ctx := logging.WithRequestID(r.Context(), id)
	if s.timeout > 0 && strings.HasPrefix(r.URL.Path, "/api/") {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.mux.ServeHTTP(w, r.WithContext(ctx))

	logging.FromContext(ctx).Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Dur("duration", time.Since(start)).
		Msg("Request served")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, depicts.Errorf("search", depicts.ErrInvalidArgument, "page %q is not a number", raw))
			return
		}
		page = n
	}

	res, err := s.svc.Search(r.Context(), q.Get("q"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.GetDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	matches, err := s.svc.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, depicts.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, depicts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, depicts.ErrDirectoryUnavailable), errors.Is(err, depicts.ErrEnrichmentUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Int("status_code", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Int("status_code", status).Msg("Request rejected")
	}

	writeJSON(w, status, errorBody{
		Error:     err.Error(),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.NewLogger("httpapi")
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
