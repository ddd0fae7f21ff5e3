package chat

import (
	"context"

	"github.com/kailas-cloud/researchrag/internal/domain"
	domchat "github.com/kailas-cloud/researchrag/internal/domain/chat"
	"github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

// SessionStore persists chat sessions keyed by (userID, sessionID).
type SessionStore interface {
	Create(ctx context.Context, s *domchat.Session) error
	Get(ctx context.Context, userID, sessionID string) (domchat.Session, error)
	List(ctx context.Context, userID string) ([]domchat.Session, error)
	// AppendMessages adds msgs to the end of the session in one step and bumps
	// its updated_at. A non-empty title fills the session title. Returns
	// domain.ErrSessionNotFound when the session is gone; never recreates it.
	AppendMessages(ctx context.Context, userID, sessionID, title string, msgs []domchat.StoredMessage) error
	Delete(ctx context.Context, userID, sessionID string) error
}

// Pipeline answers questions from the research knowledge base.
type Pipeline interface {
	Query(ctx context.Context, req rag.Request) domain.Response
	Deepen(ctx context.Context, req rag.DeepRequest) domain.Response
}
