package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvsearch/internal/domain"
	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/cvsearch/internal/logger"
	healthuc "github.com/kailas-cloud/cvsearch/internal/usecase/health"
	"github.com/kailas-cloud/cvsearch/internal/view"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest   = "bad_request"
	CodeInvalidQuery = "invalid_query"
	CodeNotFound     = "index_not_found"
	CodeUnavailable  = "engine_unavailable"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal_error"
)

// bannerUnavailable is shown on the page when the engine cannot serve the query.
const bannerUnavailable = "Search is temporarily unavailable. Please try again in a moment."

type searcher interface {
	Search(ctx context.Context, query string, page, size int) (result.Page, error)
}

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Query      string       `json:"query"`
	Page       int          `json:"page"`
	Size       int          `json:"size"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
	Results    []SearchItem `json:"results"`
}

// SearchItem is one hit in SearchResponse.
type SearchItem struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

// SchemaResponse is the body of GET /api/schema.
type SchemaResponse struct {
	Index    string          `json:"index"`
	Fields   []SchemaField   `json:"fields"`
	Template TemplateSummary `json:"template"`
}

// SchemaField describes one configured field.
type SchemaField struct {
	Name       string  `json:"name"`
	Searchable bool    `json:"searchable"`
	Result     bool    `json:"result"`
	Boost      float64 `json:"boost,omitempty"`
}

// TemplateSummary describes the result card.
type TemplateSummary struct {
	Title  string        `json:"title"`
	Blocks []BlockFormat `json:"blocks"`
}

// BlockFormat describes one card line.
type BlockFormat struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Suffix string `json:"suffix,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server serves the search page and the JSON API.
type Server struct {
	search        searcher
	health        healthChecker
	page          *view.Renderer
	index         string
	schema        schema.Schema
	card          schema.Template
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP server handlers.
func NewServer(
	search searcher,
	health healthChecker,
	page *view.Renderer,
	index string,
	sch schema.Schema,
	card schema.Template,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		health: health,
		page:   page,
		index:  index,
		schema: sch,
		card:   card,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEngineUnavailable, http.StatusBadGateway, CodeUnavailable),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized),
	}
	return s
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.SearchPage)
	r.Get("/api/search", s.SearchAPI)
	r.Get("/api/schema", s.Schema)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// searchParams are the query parameters shared by the page and the API.
type searchParams struct {
	Query string
	Page  int
	Size  int
}

func bindSearchParams(q url.Values) (searchParams, error) {
	var p searchParams
	var query *string
	var page, size *int
	if err := runtime.BindQueryParameter("form", true, false, "q", q, &query); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "size", q, &size); err != nil {
		return p, err
	}
	if query != nil {
		p.Query = *query
	}
	if page != nil {
		p.Page = *page
	}
	if size != nil {
		p.Size = *size
	}
	return p, nil
}

// SearchPage handles GET /. Without q it shows the first page of all documents.
func (s *Server) SearchPage(w http.ResponseWriter, r *http.Request) {
	log := s.log(r)
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		s.renderPage(w, r, http.StatusBadRequest, view.Data{Error: "Invalid search parameters."})
		return
	}

	data := view.Data{Query: params.Query, Size: params.Size}
	page, err := s.search.Search(r.Context(), params.Query, params.Page, params.Size)
	if err != nil {
		status, banner := pageError(err)
		if status >= http.StatusInternalServerError {
			log.Error("search page failed", zap.Error(err))
		} else {
			log.Warn("search page rejected", zap.Error(err))
		}
		data.Error = banner
		s.renderPage(w, r, status, data)
		return
	}

	data.Page = page
	s.renderPage(w, r, http.StatusOK, data)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data view.Data) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Render(w, data); err != nil {
		s.log(r).Error("render page", zap.Error(err))
	}
}

// pageError maps a search error to the page status and banner text.
func pageError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, safeDomainMessage(err)
	case errors.Is(err, domain.ErrIndexNotFound):
		return http.StatusNotFound, "The transcription index has not been created yet."
	case errors.Is(err, domain.ErrEngineUnavailable):
		return http.StatusBadGateway, bannerUnavailable
	default:
		return http.StatusInternalServerError, "Something went wrong while searching."
	}
}

// SearchAPI handles GET /api/search.
func (s *Server) SearchAPI(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request: "+err.Error())
		return
	}

	page, err := s.search.Search(r.Context(), params.Query, params.Page, params.Size)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchItem, len(page.Results))
	for i, res := range page.Results {
		items[i] = SearchItem{ID: res.ID(), Score: res.Score(), Fields: res.Fields()}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:      params.Query,
		Page:       page.Page,
		Size:       page.Size,
		Total:      page.Total,
		TotalPages: page.TotalPages(),
		Results:    items,
	})
}

// Schema handles GET /api/schema.
func (s *Server) Schema(w http.ResponseWriter, _ *http.Request) {
	fields := s.schema.Fields()
	resp := SchemaResponse{
		Index:    s.index,
		Fields:   make([]SchemaField, len(fields)),
		Template: TemplateSummary{Title: s.card.Title()},
	}
	for i, f := range fields {
		resp.Fields[i] = SchemaField{Name: f.Name(), Searchable: f.Searchable(), Result: f.Result(), Boost: f.Boost()}
	}
	blocks := s.card.Blocks()
	resp.Template.Blocks = make([]BlockFormat, len(blocks))
	for i, b := range blocks {
		resp.Template.Blocks[i] = BlockFormat{Field: b.Field, Label: b.Label, Suffix: b.Suffix}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message. Invalid-query errors keep their
// detail because it describes the caller's own input; everything else is reduced to its sentinel.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrIndexNotFound,
		domain.ErrEngineUnavailable,
		domain.ErrUnauthorized,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler creates an errorHandler that matches a sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) log(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.log(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
