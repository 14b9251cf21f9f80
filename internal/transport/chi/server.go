package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/request"
	"github.com/kailas-cloud/tripwise/internal/domain/search/response"
	logpkg "github.com/kailas-cloud/tripwise/internal/logger"
	healthuc "github.com/kailas-cloud/tripwise/internal/usecase/health"
)

// Run history page bounds.
const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// Error codes in ErrorResponse.
const (
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeValidationFailed = "validation_failed"
	CodeUnavailable      = "unavailable"
	CodeConflict         = "conflict"
	CodeRateLimited      = "rate_limited"
	CodeProviderError    = "provider_error"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query   string           `json:"query"`
	Context *request.Context `json:"context,omitempty"`
	Filters *request.Filters `json:"filters,omitempty"`
	Limit   int              `json:"limit,omitempty"`
}

// AddDestinationRequest is the POST /destinations body.
type AddDestinationRequest struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// FeedbackRequest is the POST /destinations/{id}/feedback body.
type FeedbackRequest struct {
	Rating   int    `json:"rating"`
	Category string `json:"category"`
	Comment  string `json:"comment,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// RunsResponse is the GET /pipeline/runs body.
type RunsResponse struct {
	Items   []dompipe.RunStats `json:"items"`
	Current dompipe.RunStats   `json:"current"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the knowledge base HTTP API.
type Server struct {
	search        Searcher
	destinations  Destinations
	quality       Quality
	pipeline      Pipeline
	runs          RunHistory
	health        Health
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	destinations Destinations,
	quality Quality,
	pipeline Pipeline,
	runs RunHistory,
	health Health,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:       search,
		destinations: destinations,
		quality:      quality,
		pipeline:     pipeline,
		runs:         runs,
		health:       health,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnconfigured, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(domain.ErrPipelineRunning, http.StatusConflict, CodeConflict),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrPersistence, http.StatusInternalServerError, CodeInternalError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrSourceUnavailable, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.Search)

	r.Route("/destinations", func(r chi.Router) {
		r.Post("/", s.AddDestination)
		r.Get("/{id}", s.GetDestination)
		r.Post("/{id}/refresh", s.RefreshDestination)
		r.Post("/{id}/feedback", s.SubmitFeedback)
		r.Get("/{id}/feedback", s.FeedbackSummary)
	})

	r.Get("/status", s.SystemStatus)
	r.Post("/pipeline/run", s.RunPipeline)
	r.Get("/pipeline/runs", s.ListRuns)
	r.Get("/quality/report", s.QualityReport)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search. The HTTP status is 200 for every well-formed
// request; the outcome lives in the body's status block.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(body.Query, body.Context, body.Filters, body.Limit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			response.Empty(http.StatusBadRequest, response.MessageError, err.Error()))
		return
	}

	logpkg.FromContextOr(r.Context(), s.logger).Debug("Search request", zap.String("query", req.Query()))
	writeJSON(w, http.StatusOK, s.search.Search(r.Context(), req))
}

// AddDestination handles POST /destinations.
func (s *Server) AddDestination(w http.ResponseWriter, r *http.Request) {
	var body AddDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Destination name is required")
		return
	}

	res, err := s.destinations.Add(r.Context(), body.Name, body.Country)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetDestination handles GET /destinations/{id}.
func (s *Server) GetDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.destinations.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RefreshDestination handles POST /destinations/{id}/refresh.
func (s *Server) RefreshDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.destinations.Update(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubmitFeedback handles POST /destinations/{id}/feedback.
func (s *Server) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := s.quality.SubmitFeedback(r.Context(), id, body.Rating, quality.Category(body.Category), body.Comment)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// FeedbackSummary handles GET /destinations/{id}/feedback.
func (s *Server) FeedbackSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sum, err := s.quality.FeedbackSummary(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// SystemStatus handles GET /status.
func (s *Server) SystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.SystemStatus(r.Context()))
}

// RunPipeline handles POST /pipeline/run. The run continues in the
// background; an already running pipeline is reported as is.
func (s *Server) RunPipeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusAccepted, s.pipeline.Trigger(dompipe.TriggerManual))
}

// ListRuns handles GET /pipeline/runs?limit=.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter limit: "+err.Error())
		return
	}
	if limit <= 0 || limit > maxRunsLimit {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be between 1 and 100")
		return
	}

	items, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []dompipe.RunStats{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Items: items, Current: s.pipeline.Status()})
}

// QualityReport handles GET /quality/report.
func (s *Server) QualityReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.quality.GenerateReport(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
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

// pathID binds the {id} path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter id: "+err.Error())
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Invalid input keeps the full message since it describes the caller's own mistake.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrUnconfigured,
		domain.ErrPipelineRunning,
		domain.ErrRateLimited,
		domain.ErrPersistence,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
		domain.ErrSourceUnavailable,
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
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
