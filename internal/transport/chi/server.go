package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
	healthuc "github.com/kailas-cloud/docguard/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docguard/internal/usecase/ingest"
	queryuc "github.com/kailas-cloud/docguard/internal/usecase/query"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeInvalidDocument  = "invalid_document"
	codeIndexUnavailable = "index_unavailable"
	codeProviderError    = "llm_provider_error"
	codeInternal         = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// UserWriter seeds directory records (admin surface).
type UserWriter interface {
	PutUser(ctx context.Context, user *domain.UserRecord) error
}

// Server exposes the decision pipeline over HTTP.
type Server struct {
	query         *queryuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	users         UserWriter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query *queryuc.Service, ingest *ingestuc.Service, health *healthuc.Service, users UserWriter, logger *zap.Logger) *Server {
	s := &Server{
		query:  query,
		ingest: ingest,
		health: health,
		users:  users,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, codeInvalidDocument),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// RegisterRoutes mounts the API handlers on a router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/decide", s.handleDecide)
		r.Post("/documents", s.handleIngest)
		r.Post("/reindex", s.handleReindex)
		r.Put("/users/{id}", s.handlePutUser)
	})
}

type queryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// handleQuery handles POST /v1/query. The pipeline outcome (approved,
// denied, error) is carried in the body; HTTP status stays 200 for every
// well-formed request, matching the consumer contract.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	ans := s.query.Answer(r.Context(), req.UserID, req.Query)
	writeJSON(w, http.StatusOK, ans)
}

// handleDecide handles POST /v1/decide: the authorization gates alone,
// without retrieval or generation.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	ans := s.query.Decide(r.Context(), req.UserID, req.Query)
	writeJSON(w, http.StatusOK, ans)
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "user_id is required")
		return req, false
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query is required")
		return req, false
	}
	return req, true
}

type ingestRequest struct {
	Source     string `json:"source"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	Department string `json:"department"`
}

type ingestResponse struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// handleIngest handles POST /v1/documents.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	n, err := s.ingest.Ingest(r.Context(), ingestuc.Document{
		Source:     req.Source,
		Filename:   req.Filename,
		Content:    req.Content,
		Department: req.Department,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{Source: req.Source, Chunks: n})
}

// handleReindex handles POST /v1/reindex: drop and recreate the vector
// index so stored chunks are rescanned with the current geometry.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Rebuild(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userRequest struct {
	Role                 string `json:"role"`
	Department           string `json:"department"`
	EmployeeStatus       string `json:"employee_status"`
	TimeInPosition       string `json:"time_in_position"`
	EmployeeJoinDate     string `json:"employee_join_date"`
	LastSecurityTraining string `json:"last_security_training"`
	Location             string `json:"location"`
	Region               string `json:"region"`
	PastViolations       int    `json:"past_violations"`
}

// handlePutUser handles PUT /v1/users/{id}: create or replace a directory
// record.
func (s *Server) handlePutUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "user id is required")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Department == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "department is required")
		return
	}

	err := s.users.PutUser(r.Context(), &domain.UserRecord{
		UserID:               id,
		Role:                 domain.ParseRole(req.Role),
		Department:           req.Department,
		EmployeeStatus:       req.EmployeeStatus,
		TimeInPosition:       req.TimeInPosition,
		EmployeeJoinDate:     req.EmployeeJoinDate,
		LastSecurityTraining: req.LastSecurityTraining,
		Location:             req.Location,
		Region:               req.Region,
		PastViolations:       req.PastViolations,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// handleDomainError maps a usecase error to an HTTP response.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
