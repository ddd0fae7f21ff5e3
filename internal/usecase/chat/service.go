package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/researchrag/internal/domain"
	domchat "github.com/kailas-cloud/researchrag/internal/domain/chat"
	"github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

// Answer is a pipeline response together with the session it was appended to.
type Answer struct {
	Session  domchat.Session
	Response domain.Response
}

// Service manages chat sessions and routes their questions through the pipeline.
type Service struct {
	sessions SessionStore
	pipeline Pipeline
	now      func() time.Time
	newID    func() string
}

// New creates a chat service.
func New(sessions SessionStore, pipeline Pipeline) *Service {
	return &Service{
		sessions: sessions,
		pipeline: pipeline,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create starts an empty session. An empty title is filled from the first question.
func (s *Service) Create(ctx context.Context, userID, title string) (domchat.Session, error) {
	if err := domchat.ValidateID("user", userID); err != nil {
		return domchat.Session{}, err
	}
	now := s.now().UnixMilli()
	sess := domchat.Session{
		ID:        s.newID(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Messages:  []domchat.StoredMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return domchat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns a session or domain.ErrSessionNotFound.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (domchat.Session, error) {
	if err := validateKey(userID, sessionID); err != nil {
		return domchat.Session{}, err
	}
	sess, err := s.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return domchat.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns a user's sessions, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]domchat.Session, error) {
	if err := domchat.ValidateID("user", userID); err != nil {
		return nil, err
	}
	list, err := s.sessions.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	if err := validateKey(userID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ask answers query with the session history as context and appends
// the question and the answer to the session.
func (s *Service) Ask(ctx context.Context, userID, sessionID, query, projectID string) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return Answer{}, err
	}

	resp := s.pipeline.Query(ctx, rag.Request{
		Query:     query,
		History:   sess.History(),
		ProjectID: projectID,
	})

	var title string
	if sess.Title == "" {
		title = domchat.TitleFrom(query)
	}
	now := s.now().UnixMilli()
	msgs := []domchat.StoredMessage{
		{
			ID:        s.newID(),
			Role:      domchat.RoleUser,
			Content:   query,
			Timestamp: now,
		},
		s.assistantMessage(resp, now),
	}
	if err := s.save(ctx, &sess, title, msgs); err != nil {
		return Answer{}, err
	}
	return Answer{Session: sess, Response: resp}, nil
}

// Deep runs deep analysis on the session's last answered question
// and appends the result as a new assistant message.
func (s *Service) Deep(ctx context.Context, userID, sessionID, projectID string) (Answer, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return Answer{}, err
	}
	question, answer, ok := sess.LastExchange()
	if !ok {
		return Answer{}, fmt.Errorf("%w: session has no answered question", domain.ErrInvalidInput)
	}

	resp := s.pipeline.Deepen(ctx, rag.DeepRequest{
		Query:          question,
		PreviousAnswer: answer,
		History:        sess.History(),
		ProjectID:      projectID,
	})

	msgs := []domchat.StoredMessage{s.assistantMessage(resp, s.now().UnixMilli())}
	if err := s.save(ctx, &sess, "", msgs); err != nil {
		return Answer{}, err
	}
	return Answer{Session: sess, Response: resp}, nil
}

// save appends msgs to the stored session and mirrors the change on sess.
// Messages appended concurrently by other requests are kept in storage
// but are not reflected in sess.
func (s *Service) save(ctx context.Context, sess *domchat.Session, title string, msgs []domchat.StoredMessage) error {
	if err := s.sessions.AppendMessages(ctx, sess.UserID, sess.ID, title, msgs); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if title != "" {
		sess.Title = title
	}
	for _, m := range msgs {
		sess.Append(m)
	}
	return nil
}

func validateKey(userID, sessionID string) error {
	if err := domchat.ValidateID("user", userID); err != nil {
		return err
	}
	return domchat.ValidateID("session", sessionID)
}

func (s *Service) assistantMessage(resp domain.Response, ts int64) domchat.StoredMessage {
	return domchat.StoredMessage{
		ID:        s.newID(),
		Role:      domchat.RoleAssistant,
		Content:   resp.Answer,
		Timestamp: ts,
		Sources:   resp.Sources,
		ModelTier: resp.ModelUsed.String(),
	}
}
