package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/domain"
	logpkg "github.com/cellarpress/sommelier/internal/logger"
	healthuc "github.com/cellarpress/sommelier/internal/usecase/health"
	searchuc "github.com/cellarpress/sommelier/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Searcher runs one retrieval request.
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (*domain.SearchResult, error)
}

// MemoryLister returns the remembered preference texts for the configured user.
type MemoryLister interface {
	List(ctx context.Context) ([]string, error)
}

// HealthChecker aggregates component health checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API for the retrieval service.
type Server struct {
	search        Searcher
	memories      MemoryLister
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, memories MemoryLister, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search:   search,
		memories: memories,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, "empty_query"),
		sentinelHandler(domain.ErrClassifierError, http.StatusBadGateway, "classifier_error"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrVisionProviderError, http.StatusBadGateway, "vision_provider_error"),
		sentinelHandler(domain.ErrMemoryUnavailable, http.StatusServiceUnavailable, "memory_unavailable"),
	}
	return s
}

// RegisterRoutes mounts the API routes on a chi router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/search", s.Search)
	r.Get("/memories", s.Memories)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchRequest is the POST /search request body.
type SearchRequest struct {
	Query         string   `json:"query"`
	ImageRefs     []string `json:"image_refs,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	MinSimilarity *float64 `json:"min_similarity,omitempty"`
}

// StageTimingResponse is one pipeline stage duration in milliseconds.
type StageTimingResponse struct {
	Stage      string  `json:"stage"`
	DurationMS float64 `json:"duration_ms"`
}

// SearchResponse is the POST /search response body.
type SearchResponse struct {
	Results          []domain.Review            `json:"results"`
	Memories         string                     `json:"memories,omitempty"`
	ImageDescription *string                    `json:"image_description,omitempty"`
	Classification   domain.QueryClassification `json:"classification"`
	TimingsMS        []StageTimingResponse      `json:"timings_ms"`
}

// Search handles POST /search. Image URLs embedded in the query text are
// extracted and treated as image refs; the query runs on the cleaned text.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	query, extracted := ExtractImageURLs(req.Query)
	imageRefs := append(req.ImageRefs, extracted...)

	ucReq := searchuc.Request{
		Query:     query,
		ImageRefs: imageRefs,
	}
	if req.TopK != nil {
		ucReq.TopK = *req.TopK
	}
	if req.MinSimilarity != nil {
		ucReq.MinSimilarity = *req.MinSimilarity
	}

	result, err := s.search.Search(r.Context(), ucReq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	timings := make([]StageTimingResponse, len(result.Timings))
	for i, st := range result.Timings {
		timings[i] = StageTimingResponse{
			Stage:      st.Stage,
			DurationMS: float64(st.Duration.Microseconds()) / 1000,
		}
	}

	results := result.Results
	if results == nil {
		results = []domain.Review{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results:          results,
		Memories:         result.Memories,
		ImageDescription: result.ImageDescription,
		Classification:   result.Classification,
		TimingsMS:        timings,
	})
}

// MemoriesResponse is the GET /memories response body.
type MemoriesResponse struct {
	Memories []string `json:"memories"`
}

// Memories handles GET /memories.
func (s *Server) Memories(w http.ResponseWriter, r *http.Request) {
	texts, err := s.memories.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if texts == nil {
		texts = []string{}
	}
	writeJSON(w, http.StatusOK, MemoriesResponse{Memories: texts})
}

// HealthResponse is the GET /healthz response body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /healthz.
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

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrClassifierError,
		domain.ErrEmbeddingProviderError,
		domain.ErrVisionProviderError,
		domain.ErrMemoryUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	// Request-scoped logger carries the request_id when the wide-event
	// middleware is installed.
	logpkg.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
