package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
)

// SessionStore persists chat sessions with their messages as JSONB.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, sess *chat.Session) error {
	msgs, err := marshalMessages(sess.Messages)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID, sess.UserID, sess.Title, msgs, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

// Get returns a session or domain.ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, userID, sessionID string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, messages, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1 AND id = $2
	`, userID, sessionID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return sess, nil
}

// List returns a user's sessions, most recently updated first.
func (s *SessionStore) List(ctx context.Context, userID string) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, messages, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions %s: %w", userID, err)
	}
	defer rows.Close()

	var out []chat.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// AppendMessages concatenates msgs onto the stored JSONB array in a single
// UPDATE, so concurrent appends never overwrite each other.
func (s *SessionStore) AppendMessages(
	ctx context.Context, userID, sessionID, title string, msgs []chat.StoredMessage,
) error {
	if len(msgs) == 0 {
		return nil
	}
	data, err := marshalMessages(msgs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET
			messages = messages || $3::jsonb,
			title = CASE WHEN title = '' THEN $4 ELSE title END,
			updated_at = GREATEST(updated_at, $5)
		WHERE user_id = $1 AND id = $2
	`, userID, sessionID, data, title, msgs[len(msgs)-1].Timestamp)
	if err != nil {
		return fmt.Errorf("append messages %s: %w", sessionID, err)
	}
	return requireAffected(res)
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, userID, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id = $1 AND id = $2`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (chat.Session, error) {
	var (
		sess chat.Session
		raw  []byte
	)
	if err := r.Scan(&sess.ID, &sess.UserID, &sess.Title, &raw, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return chat.Session{}, err
	}
	sess.Messages = []chat.StoredMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &sess.Messages); err != nil {
			return chat.Session{}, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	return sess, nil
}

func marshalMessages(msgs []chat.StoredMessage) ([]byte, error) {
	if msgs == nil {
		msgs = []chat.StoredMessage{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}
	return data, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
