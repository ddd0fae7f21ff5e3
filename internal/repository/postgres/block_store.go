package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kailas-cloud/researchrag/internal/domain/block"
)

const blockColumns = `id, project_id, block_type, order_idx, summary, conclusions, source_ids, searchable_text`

const upsertBlockSQL = `
	INSERT INTO blocks (id, project_id, block_type, order_idx, summary, conclusions, source_ids, searchable_text, sources)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		project_id = EXCLUDED.project_id,
		block_type = EXCLUDED.block_type,
		order_idx = EXCLUDED.order_idx,
		summary = EXCLUDED.summary,
		conclusions = EXCLUDED.conclusions,
		source_ids = EXCLUDED.source_ids,
		searchable_text = EXCLUDED.searchable_text,
		sources = EXCLUDED.sources
`

const deleteProjectSQL = `DELETE FROM blocks WHERE project_id = $1`

// BlockStore implements the block repository contract on PostgreSQL.
type BlockStore struct {
	db *DB
}

// NewBlockStore creates a BlockStore.
func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

// ReplaceProject swaps the stored project for the snapshot in one
// transaction: the old rows are deleted before any insert, so reordered
// blocks never collide on (project_id, order_idx).
func (s *BlockStore) ReplaceProject(ctx context.Context, snap block.Snapshot) error {
	var sources []byte
	if snap.SourcesID != "" {
		data, err := json.Marshal(snap.Sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
		sources = data
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteProjectSQL, snap.ProjectID); err != nil {
			return fmt.Errorf("delete project %s: %w", snap.ProjectID, err)
		}
		if snap.Len() == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, upsertBlockSQL)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for i := range snap.Content {
			if _, err := stmt.ExecContext(ctx, blockArgs(&snap.Content[i], nil)...); err != nil {
				return fmt.Errorf("insert block %s: %w", snap.Content[i].ID, err)
			}
		}
		if b, ok := snap.SourcesBlock(); ok {
			if _, err := stmt.ExecContext(ctx, blockArgs(&b, sources)...); err != nil {
				return fmt.Errorf("insert sources %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// DeleteProject removes every block of a project.
func (s *BlockStore) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, deleteProjectSQL, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	return nil
}

// SearchText runs a websearch-style full-text query ranked by ts_rank.
// An empty projectID searches every project.
func (s *BlockStore) SearchText(ctx context.Context, query, projectID string, limit int) ([]block.Block, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	q := `
		SELECT ` + blockColumns + `
		FROM blocks
		WHERE tsv @@ websearch_to_tsquery('english', $1)
		  AND ($2::text = '' OR project_id = $2)
		ORDER BY ts_rank(tsv, websearch_to_tsquery('english', $1)) DESC, project_id, order_idx
		LIMIT $3
	`
	return s.queryBlocks(ctx, q, query, projectID, limit)
}

// SearchSubstring matches term anywhere in searchable_text, case-insensitively.
func (s *BlockStore) SearchSubstring(ctx context.Context, term, projectID string, limit int) ([]block.Block, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	q := `
		SELECT ` + blockColumns + `
		FROM blocks
		WHERE searchable_text ILIKE $1 ESCAPE '\'
		  AND ($2::text = '' OR project_id = $2)
		ORDER BY project_id, order_idx
		LIMIT $3
	`
	return s.queryBlocks(ctx, q, likePattern(term), projectID, limit)
}

// ProjectBlocks returns every block of a project sorted ascending by order.
func (s *BlockStore) ProjectBlocks(ctx context.Context, projectID string) ([]block.Block, error) {
	q := `SELECT ` + blockColumns + ` FROM blocks WHERE project_id = $1 ORDER BY order_idx ASC`
	return s.queryBlocks(ctx, q, projectID)
}

// Sources returns the citation list of a project. ok is false when the
// project has no sources block.
func (s *BlockStore) Sources(ctx context.Context, projectID string) ([]block.Source, bool, error) {
	q := `
		SELECT sources FROM blocks
		WHERE project_id = $1 AND block_type = $2
		ORDER BY order_idx ASC
		LIMIT 1
	`
	var raw []byte
	err := s.db.QueryRowContext(ctx, q, projectID, string(block.TypeSources)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sources %s: %w", projectID, err)
	}

	var sources []block.Source
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &sources); err != nil {
			return nil, false, fmt.Errorf("unmarshal sources %s: %w", projectID, err)
		}
	}
	for i := range sources {
		if sources[i].ProjectID == "" {
			sources[i].ProjectID = projectID
		}
	}
	return sources, true, nil
}

// Count returns the number of stored blocks.
func (s *BlockStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

func (s *BlockStore) queryBlocks(ctx context.Context, q string, args ...any) ([]block.Block, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var out []block.Block
	for rows.Next() {
		var (
			b           block.Block
			typ         string
			conclusions pq.StringArray
			sourceIDs   pq.Int64Array
		)
		if err := rows.Scan(
			&b.ID, &b.ProjectID, &typ, &b.Order, &b.Summary,
			&conclusions, &sourceIDs, &b.SearchableText,
		); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		b.Type = block.Type(typ)
		if len(conclusions) > 0 {
			b.Conclusions = []string(conclusions)
		}
		for _, id := range sourceIDs {
			b.SourceIDs = append(b.SourceIDs, int(id))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return block.Ranked(out), nil
}

func blockArgs(b *block.Block, sources []byte) []any {
	conclusions := b.Conclusions
	if conclusions == nil {
		conclusions = []string{}
	}
	ids := make([]int64, len(b.SourceIDs))
	for i, id := range b.SourceIDs {
		ids[i] = int64(id)
	}
	var src any
	if sources != nil {
		src = sources
	}
	return []any{
		b.ID, b.ProjectID, string(b.Type), b.Order, b.Summary,
		pq.Array(conclusions), pq.Array(ids), b.SearchableText, src,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps term for ILIKE with LIKE metacharacters escaped.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}
