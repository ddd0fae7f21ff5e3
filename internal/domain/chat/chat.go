package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
)

// Role is the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Message is one immutable turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Tail returns the last n turns of history.
func Tail(history []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// StoredMessage is a persisted session message.
type StoredMessage struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp int64          `json:"timestamp"` // unix millis
	Sources   []block.Source `json:"sources,omitempty"`
	ModelTier string         `json:"model_tier,omitempty"`
}

// Session is a user's persisted conversation.
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt int64           `json:"created_at"` // unix millis
	UpdatedAt int64           `json:"updated_at"` // unix millis
}

// History projects stored messages to conversation turns.
func (s *Session) History() []Message {
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// Append adds a message and bumps UpdatedAt.
func (s *Session) Append(m StoredMessage) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = m.Timestamp
	if s.UpdatedAt == 0 {
		s.UpdatedAt = time.Now().UnixMilli()
	}
}

// LastExchange returns the last user question and the assistant answer that follows it.
func (s *Session) LastExchange() (question, answer string, ok bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role != RoleAssistant || i == 0 {
			continue
		}
		if s.Messages[i-1].Role == RoleUser {
			return s.Messages[i-1].Content, s.Messages[i].Content, true
		}
	}
	return "", "", false
}

// TitleFrom derives a session title from the first question.
func TitleFrom(query string) string {
	const maxLen = 60
	r := []rune(query)
	if len(r) <= maxLen {
		return query
	}
	return string(r[:maxLen]) + "…"
}

// ValidateID rejects blank ids and ids containing ':', the storage key separator.
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", domain.ErrInvalidInput, kind)
	}
	if strings.ContainsRune(id, ':') {
		return fmt.Errorf("%w: %s id must not contain ':'", domain.ErrInvalidInput, kind)
	}
	return nil
}
