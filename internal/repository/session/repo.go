package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/kailas-cloud/researchrag/internal/db"
	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
)

// store is the consumer interface for sessions (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONArrAppend(ctx context.Context, key, path string, values ...[]byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo persists chat sessions as JSON documents keyed by (userID, sessionID).
// Each user has a set of session ids used for listing.
type Repo struct {
	store  store
	prefix string
}

// New creates a session repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Create stores a new session and indexes it under its user.
func (r *Repo) Create(ctx context.Context, s *chat.Session) error {
	if err := r.put(ctx, s); err != nil {
		return err
	}
	if err := r.store.SAdd(ctx, r.userKey(s.UserID), s.ID); err != nil {
		return fmt.Errorf("index session %s: %w", s.ID, err)
	}
	return nil
}

// Get returns a session or domain.ErrSessionNotFound.
func (r *Repo) Get(ctx context.Context, userID, sessionID string) (chat.Session, error) {
	key := r.sessionKey(userID, sessionID)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return chat.Session{}, domain.ErrSessionNotFound
		}
		return chat.Session{}, fmt.Errorf("json.get %s: %w", key, err)
	}

	// JSONPath "$" returns an array of matches.
	var docs []chat.Session
	if err := json.Unmarshal(raw, &docs); err != nil {
		return chat.Session{}, fmt.Errorf("unmarshal session %s: %w", key, err)
	}
	if len(docs) == 0 {
		return chat.Session{}, domain.ErrSessionNotFound
	}
	return docs[0], nil
}

// List returns a user's sessions, most recently updated first.
// Index entries whose document is gone are pruned.
func (r *Repo) List(ctx context.Context, userID string) ([]chat.Session, error) {
	ids, err := r.store.SMembers(ctx, r.userKey(userID))
	if err != nil {
		return nil, fmt.Errorf("list sessions %s: %w", userID, err)
	}

	out := make([]chat.Session, 0, len(ids))
	var stale []string
	for _, id := range ids {
		s, err := r.Get(ctx, userID, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if len(stale) > 0 {
		// best effort
		_ = r.store.SRem(ctx, r.userKey(userID), stale...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AppendMessages appends msgs to the session's message array with
// JSON.ARRAPPEND, then sets updated_at and a non-empty title. Concurrent
// appends never drop each other's messages. Only non-root paths are written
// after the append, so a session deleted in between is never recreated.
func (r *Repo) AppendMessages(ctx context.Context, userID, sessionID, title string, msgs []chat.StoredMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([][]byte, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values[i] = data
	}

	key := r.sessionKey(userID, sessionID)
	if err := r.store.JSONArrAppend(ctx, key, "$.messages", values...); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("json.arrappend %s: %w", key, err)
	}

	updatedAt := msgs[len(msgs)-1].Timestamp
	if err := r.store.JSONSet(ctx, key, "$.updated_at", []byte(strconv.FormatInt(updatedAt, 10))); err != nil {
		return fmt.Errorf("json.set %s updated_at: %w", key, err)
	}
	if title != "" {
		data, err := json.Marshal(title)
		if err != nil {
			return fmt.Errorf("marshal title: %w", err)
		}
		if err := r.store.JSONSet(ctx, key, "$.title", data); err != nil {
			return fmt.Errorf("json.set %s title: %w", key, err)
		}
	}
	return nil
}

// Delete removes a session and its index entry.
func (r *Repo) Delete(ctx context.Context, userID, sessionID string) error {
	key := r.sessionKey(userID, sessionID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrSessionNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.SRem(ctx, r.userKey(userID), sessionID); err != nil {
		return fmt.Errorf("unindex session %s: %w", sessionID, err)
	}
	return nil
}

func (r *Repo) put(ctx context.Context, s *chat.Session) error {
	if s.Messages == nil {
		s.Messages = []chat.StoredMessage{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.sessionKey(s.UserID, s.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

func (r *Repo) sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("%ssession:%s:%s", r.prefix, userID, sessionID)
}

func (r *Repo) userKey(userID string) string {
	return fmt.Sprintf("%ssessions:%s", r.prefix, userID)
}
