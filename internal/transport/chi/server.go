// Package chi exposes search, count and mapping endpoints over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/search/query"
	"github.com/kailas-cloud/elodex/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/elodex/internal/logger"
	healthuc "github.com/kailas-cloud/elodex/internal/usecase/health"
)

// Error codes.
const (
	codeBadRequest     = "bad_request"
	codeUnauthorized   = "unauthorized"
	codeValidation     = "validation_failed"
	codeIndexNotFound  = "index_not_found"
	codeNotFound       = "not_found"
	codeConflict       = "conflict"
	codeNotImplemented = "not_implemented"
	codeBackend        = "backend_error"
	codeInternal       = "internal_error"
)

const maxBodyBytes = 1 << 20

// Mappings reads stored index mappings.
type Mappings interface {
	Mappings(ctx context.Context, index, docType string) (map[string]any, error)
}

// Server serves the HTTP API.
type Server struct {
	search      db.Searcher
	mappings    Mappings
	health      *healthuc.Service
	maxPageSize int
}

// NewServer creates an HTTP API server. maxPageSize caps the size of
// searches built from query parameters.
func NewServer(search db.Searcher, mappings Mappings, health *healthuc.Service, maxPageSize int) *Server {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &Server{
		search:      search,
		mappings:    mappings,
		health:      health,
		maxPageSize: maxPageSize,
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1/indexes/{index}", func(r chi.Router) {
		r.Get("/mapping", s.GetMapping)
		r.Post("/types/{type}/search", s.Search)
		r.Post("/types/{type}/count", s.Count)
	})
}

type hitView struct {
	ID        string              `json:"id"`
	Type      string              `json:"type,omitempty"`
	Score     *float64            `json:"score,omitempty"`
	Version   *int64              `json:"version,omitempty"`
	Source    map[string]any      `json:"source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

type searchResponse struct {
	Total        int64                      `json:"total"`
	MaxScore     *float64                   `json:"max_score,omitempty"`
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	Hits         []hitView                  `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
	Suggest      map[string][]db.Suggestion `json:"suggest,omitempty"`
}

// Search handles POST /v1/indexes/{index}/types/{type}/search. The body is a
// structured search; without one the search is built from query parameters
// (q, size, from, sort, highlight).
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	body, err := s.requestBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), &db.SearchRequest{
		Index:   chi.URLParam(r, "index"),
		Types:   []string{chi.URLParam(r, "type")},
		Body:    body,
		Version: true,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	res := result.New(resp, nil)
	docs := res.Documents()
	if r.URL.Query().Get("highlighted") == "true" {
		docs = res.HighlightedDocuments()
	}
	out := searchResponse{
		Total:        res.Total(),
		Took:         res.Took(),
		TimedOut:     res.TimedOut(),
		Hits:         make([]hitView, len(docs)),
		Aggregations: res.Aggregations(),
		Suggest:      res.Suggestions(),
	}
	if ms, ok := res.MaxScore(); ok {
		out.MaxScore = &ms
	}
	for i, d := range docs {
		meta, _ := res.Metadata(d.ID)
		out.Hits[i] = hitView{
			ID:        d.ID,
			Type:      meta.Type,
			Score:     meta.Score,
			Version:   meta.Version,
			Source:    d.Source,
			Highlight: meta.Highlight,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Count handles POST /v1/indexes/{index}/types/{type}/count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	body, err := s.requestBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	countBody := map[string]any{}
	if q, ok := body["query"]; ok {
		countBody["query"] = q
	}

	resp, err := s.search.Count(r.Context(), &db.CountRequest{
		Index: chi.URLParam(r, "index"),
		Types: []string{chi.URLParam(r, "type")},
		Body:  countBody,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": resp.Count})
}

// GetMapping handles GET /v1/indexes/{index}/mapping?type=...
func (s *Server) GetMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.mappings.Mappings(r.Context(), chi.URLParam(r, "index"), r.URL.Query().Get("type"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// requestBody decodes the JSON body, or builds one from query parameters
// when the body is empty.
func (s *Server) requestBody(r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, errors.New("invalid request body: " + err.Error())
		}
		return body, nil
	}
	return s.queryFromParams(r)
}

func (s *Server) queryFromParams(r *http.Request) (map[string]any, error) {
	params := r.URL.Query()
	q := query.New()
	if text := params.Get("q"); text != "" {
		q.QueryString(text)
	}
	if v := params.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("size must be an integer")
		}
		q.Limit(min(n, s.maxPageSize))
	}
	if v := params.Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("from must be an integer")
		}
		q.Offset(n)
	}
	for _, spec := range params["sort"] {
		field, dir, _ := strings.Cut(spec, ":")
		order := query.Asc
		if strings.EqualFold(dir, "desc") {
			order = query.Desc
		}
		q.Sort(field, order)
	}
	for _, field := range params["highlight"] {
		q.Highlight(field)
	}
	if err := q.Err(); err != nil {
		return nil, err
	}
	return q.Body(), nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// handleError maps domain and backend errors to HTTP responses. Failures are
// logged with the request logger.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	var re *db.ResponseError
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, db.ErrIndexNotFound):
		writeError(w, http.StatusNotFound, codeIndexNotFound, "index not found")
	case errors.Is(err, db.ErrDocumentNotFound), errors.Is(err, db.ErrScrollExpired):
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	case errors.Is(err, db.ErrIndexExists):
		writeError(w, http.StatusConflict, codeConflict, "index already exists")
	case errors.Is(err, db.ErrNotSupported):
		writeError(w, http.StatusNotImplemented, codeNotImplemented, "operation not supported by backend")
	case errors.As(err, &re) && re.Status >= 400 && re.Status < 500:
		logger.Warn("backend rejected request", zap.Error(err))
		writeError(w, re.Status, codeBackend, re.Reason)
	default:
		logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
