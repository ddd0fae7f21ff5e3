package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	domchat "github.com/kailas-cloud/researchrag/internal/domain/chat"
	domusage "github.com/kailas-cloud/researchrag/internal/domain/usage"
	chatuc "github.com/kailas-cloud/researchrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/researchrag/internal/usecase/health"
	"github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

const (
	maxBodyBytes   = 1 << 20
	maxQueryRunes  = 4000
	maxHistoryMsgs = 50
)

// Pipeline answers stateless questions.
type Pipeline interface {
	Query(ctx context.Context, req rag.Request) domain.Response
	Deepen(ctx context.Context, req rag.DeepRequest) domain.Response
}

// Sessions manages persisted chat sessions.
type Sessions interface {
	Create(ctx context.Context, userID, title string) (domchat.Session, error)
	Get(ctx context.Context, userID, sessionID string) (domchat.Session, error)
	List(ctx context.Context, userID string) ([]domchat.Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
	Ask(ctx context.Context, userID, sessionID, query, projectID string) (chatuc.Answer, error)
	Deep(ctx context.Context, userID, sessionID, projectID string) (chatuc.Answer, error)
}

// UsageReporter builds token usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the researchrag HTTP API.
type Server struct {
	pipeline      Pipeline
	sessions      Sessions
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	pipeline Pipeline,
	sessions Sessions,
	usage UsageReporter,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline: pipeline,
		sessions: sessions,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrModelQuotaExceeded, http.StatusPaymentRequired, CodeModelQuotaExceeded),
		sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, CodeModelProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
	}
	return s
}

// Query handles POST /v1/chat/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if msg := validateQuestion(req.Query, req.History); msg != "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
		return
	}

	ctx, usage := domain.NewContextWithLLMUsage(r.Context())
	resp := s.pipeline.Query(ctx, rag.Request{
		Query:     strings.TrimSpace(req.Query),
		History:   req.History,
		ProjectID: req.ProjectID,
	})

	setLLMHeaders(w, usage)
	writeJSON(w, http.StatusOK, answerToDTO(resp))
}

// Deep handles POST /v1/chat/deep.
func (s *Server) Deep(w http.ResponseWriter, r *http.Request) {
	var req DeepRequest
	if !s.decode(w, r, &req) {
		return
	}
	if msg := validateQuestion(req.Query, req.History); msg != "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
		return
	}
	if strings.TrimSpace(req.PreviousAnswer) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "previous_answer is required")
		return
	}

	ctx, usage := domain.NewContextWithLLMUsage(r.Context())
	resp := s.pipeline.Deepen(ctx, rag.DeepRequest{
		Query:          strings.TrimSpace(req.Query),
		PreviousAnswer: req.PreviousAnswer,
		History:        req.History,
		ProjectID:      req.ProjectID,
	})

	setLLMHeaders(w, usage)
	writeJSON(w, http.StatusOK, answerToDTO(resp))
}

// CreateSession handles POST /v1/users/{userID}/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	sess, err := s.sessions.Create(r.Context(), chi.URLParam(r, "userID"), req.Title)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s/sessions/%s", sess.UserID, sess.ID))
	writeJSON(w, http.StatusCreated, sessionToDTO(&sess))
}

// ListSessions handles GET /v1/users/{userID}/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SessionSummary, len(list))
	for i := range list {
		items[i] = sessionToSummary(&list[i])
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Items: items, Total: len(items)})
}

// GetSession handles GET /v1/users/{userID}/sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToDTO(&sess))
}

// DeleteSession handles DELETE /v1/users/{userID}/sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AskSession handles POST /v1/users/{userID}/sessions/{sessionID}/messages.
func (s *Server) AskSession(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	if msg := validateQuestion(req.Query, nil); msg != "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
		return
	}

	ctx, usage := domain.NewContextWithLLMUsage(r.Context())
	ans, err := s.sessions.Ask(ctx, chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"), req.Query, req.ProjectID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setLLMHeaders(w, usage)
	writeJSON(w, http.StatusOK, sessionAnswer(&ans))
}

// DeepSession handles POST /v1/users/{userID}/sessions/{sessionID}/deep.
func (s *Server) DeepSession(w http.ResponseWriter, r *http.Request) {
	var req SessionDeepRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithLLMUsage(r.Context())
	ans, err := s.sessions.Deep(ctx, chi.URLParam(r, "userID"), chi.URLParam(r, "sessionID"), req.ProjectID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setLLMHeaders(w, usage)
	writeJSON(w, http.StatusOK, sessionAnswer(&ans))
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, ok := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "period must be day or month")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	b := report.Budget()
	resp := UsageResponse{
		Period:        report.Period(),
		PeriodStartAt: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(report.PeriodEnd()).UTC(),
		TokensUsed:    report.TokensUsed(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if !b.IsUnlimited() && b.ResetsAt() > 0 {
		resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
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
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func sessionAnswer(ans *chatuc.Answer) SessionAnswerResponse {
	resp := SessionAnswerResponse{
		SessionID: ans.Session.ID,
		Answer:    answerToDTO(ans.Response),
	}
	if n := len(ans.Session.Messages); n > 0 {
		resp.Message = messageToDTO(ans.Session.Messages[n-1])
	}
	return resp
}

func validateQuestion(query string, history []domchat.Message) string {
	q := strings.TrimSpace(query)
	switch {
	case q == "":
		return "query is required"
	case len([]rune(q)) > maxQueryRunes:
		return fmt.Sprintf("query must be at most %d characters", maxQueryRunes)
	case len(history) > maxHistoryMsgs:
		return fmt.Sprintf("history must have at most %d messages", maxHistoryMsgs)
	}
	for i, m := range history {
		if !m.Role.Valid() {
			return fmt.Sprintf("history[%d].role must be user or assistant", i)
		}
	}
	return ""
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setLLMHeaders(w http.ResponseWriter, usage *domain.LLMUsage) {
	if usage.Calls() > 0 {
		w.Header().Set("X-LLM-Tokens", strconv.Itoa(usage.TotalTokens()))
		w.Header().Set("X-LLM-Calls", strconv.Itoa(usage.Calls()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrRateLimited,
		domain.ErrModelQuotaExceeded,
		domain.ErrModelProviderError,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
