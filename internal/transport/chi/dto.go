package chi

import (
	"time"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	domchat "github.com/kailas-cloud/researchrag/internal/domain/chat"
	domusage "github.com/kailas-cloud/researchrag/internal/domain/usage"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeNotFound           ErrorCode = "not_found"
	CodeSessionNotFound    ErrorCode = "session_not_found"
	CodeMethodNotAllowed   ErrorCode = "method_not_allowed"
	CodeRateLimited        ErrorCode = "rate_limited"
	CodeModelQuotaExceeded ErrorCode = "model_quota_exceeded"
	CodeModelProviderError ErrorCode = "model_provider_error"
	CodeNotImplemented     ErrorCode = "not_implemented"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest is the body of POST /v1/chat/query.
type QueryRequest struct {
	Query     string            `json:"query"`
	History   []domchat.Message `json:"history,omitempty"`
	ProjectID string            `json:"project_id,omitempty"`
}

// DeepRequest is the body of POST /v1/chat/deep.
type DeepRequest struct {
	Query          string            `json:"query"`
	PreviousAnswer string            `json:"previous_answer"`
	History        []domchat.Message `json:"history,omitempty"`
	ProjectID      string            `json:"project_id,omitempty"`
}

// AnswerResponse is a pipeline answer.
type AnswerResponse struct {
	Answer     string         `json:"answer"`
	Sources    []block.Source `json:"sources"`
	BlocksUsed []string       `json:"blocks_used"`
	ModelUsed  domain.Tier    `json:"model_used"`
}

// CreateSessionRequest is the body of POST /v1/users/{userID}/sessions.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// AskRequest is the body of POST .../sessions/{sessionID}/messages.
type AskRequest struct {
	Query     string `json:"query"`
	ProjectID string `json:"project_id,omitempty"`
}

// SessionDeepRequest is the optional body of POST .../sessions/{sessionID}/deep.
type SessionDeepRequest struct {
	ProjectID string `json:"project_id,omitempty"`
}

// MessageResponse is one stored chat message.
type MessageResponse struct {
	ID        string         `json:"id"`
	Role      domchat.Role   `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Sources   []block.Source `json:"sources,omitempty"`
	ModelTier *string        `json:"model_tier,omitempty"`
}

// SessionResponse is a full chat session.
type SessionResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Messages  []MessageResponse `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SessionSummary is a session without its messages.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionListResponse is the body of GET /v1/users/{userID}/sessions.
type SessionListResponse struct {
	Items []SessionSummary `json:"items"`
	Total int              `json:"total"`
}

// SessionAnswerResponse is an answer appended to a session.
type SessionAnswerResponse struct {
	SessionID string          `json:"session_id"`
	Answer    AnswerResponse  `json:"answer"`
	Message   MessageResponse `json:"message"`
}

// BudgetStatus is the token budget snapshot.
type BudgetStatus struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period        domusage.Period `json:"period"`
	PeriodStartAt time.Time       `json:"period_start_at"`
	PeriodEndAt   time.Time       `json:"period_end_at"`
	TokensUsed    int             `json:"tokens_used"`
	Budget        BudgetStatus    `json:"budget"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func answerToDTO(r domain.Response) AnswerResponse {
	resp := AnswerResponse{
		Answer:     r.Answer,
		Sources:    r.Sources,
		BlocksUsed: r.BlocksUsed,
		ModelUsed:  r.ModelUsed,
	}
	if resp.Sources == nil {
		resp.Sources = []block.Source{}
	}
	if resp.BlocksUsed == nil {
		resp.BlocksUsed = []string{}
	}
	return resp
}

func messageToDTO(m domchat.StoredMessage) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: time.UnixMilli(m.Timestamp).UTC(),
		Sources:   m.Sources,
	}
	if m.ModelTier != "" {
		tier := m.ModelTier
		resp.ModelTier = &tier
	}
	return resp
}

func sessionToDTO(s *domchat.Session) SessionResponse {
	msgs := make([]MessageResponse, len(s.Messages))
	for i := range s.Messages {
		msgs[i] = messageToDTO(s.Messages[i])
	}
	return SessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Title:     s.Title,
		Messages:  msgs,
		CreatedAt: time.UnixMilli(s.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(s.UpdatedAt).UTC(),
	}
}

func sessionToSummary(s *domchat.Session) SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		Title:        s.Title,
		MessageCount: len(s.Messages),
		UpdatedAt:    time.UnixMilli(s.UpdatedAt).UTC(),
	}
}
