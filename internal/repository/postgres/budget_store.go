package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// BudgetStore persists model token counters in budget_counters.
// Counter keys carry their day or month, so stale rows are never read back.
type BudgetStore struct {
	db *DB
}

// NewBudgetStore creates a BudgetStore.
func NewBudgetStore(db *DB) *BudgetStore {
	return &BudgetStore{db: db}
}

// IncrBy adds val tokens to a counter, creating it on first write.
func (s *BudgetStore) IncrBy(ctx context.Context, key string, val int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_counters (key, tokens, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET tokens = budget_counters.tokens + EXCLUDED.tokens, updated_at = now()
	`, key, val)
	if err != nil {
		return fmt.Errorf("incr budget %s: %w", key, err)
	}
	return nil
}

// Get returns a counter value. Missing counters read as zero.
func (s *BudgetStore) Get(ctx context.Context, key string) (int64, error) {
	var tokens int64
	err := s.db.QueryRowContext(ctx, `SELECT tokens FROM budget_counters WHERE key = $1`, key).Scan(&tokens)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get budget %s: %w", key, err)
	}
	return tokens, nil
}
