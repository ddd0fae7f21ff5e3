package block

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/researchrag/internal/db"
	domblock "github.com/kailas-cloud/researchrag/internal/domain/block"
)

// maxProjectBlocks bounds a single project listing (RediSearch MAXSEARCHRESULTS default).
const maxProjectBlocks = 10000

// store is the consumer interface for blocks (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo stores research blocks as RedisJSON documents behind one FT index.
type Repo struct {
	store  store
	prefix string
}

// New creates a block repository. prefix namespaces every key, e.g. "researchrag:".
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// EnsureIndex creates the block index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := indexName(r.prefix)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("index exists %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, buildIndex(r.prefix)); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// ReplaceProject writes every block of the snapshot in one pipelined
// round-trip, then deletes the project's stored blocks the snapshot no
// longer has. Readers may briefly see the new blocks next to stale ones.
func (r *Repo) ReplaceProject(ctx context.Context, snap domblock.Snapshot) error {
	stored, err := r.projectKeys(ctx, snap.ProjectID)
	if err != nil {
		return err
	}

	items := make([]db.JSONSetItem, 0, snap.Len())
	for i := range snap.Content {
		data, err := encodeBlock(&snap.Content[i], nil)
		if err != nil {
			return err
		}
		items = append(items, db.JSONSetItem{Key: r.blockKey(snap.Content[i].ID), Path: "$", Data: data})
	}
	if b, ok := snap.SourcesBlock(); ok {
		data, err := encodeBlock(&b, snap.Sources)
		if err != nil {
			return err
		}
		items = append(items, db.JSONSetItem{Key: r.blockKey(b.ID), Path: "$", Data: data})
	}
	if len(items) > 0 {
		if err := r.store.JSONSetMulti(ctx, items); err != nil {
			return fmt.Errorf("json.set project %s: %w", snap.ProjectID, err)
		}
	}

	keep := make(map[string]struct{}, len(items))
	for _, it := range items {
		keep[it.Key] = struct{}{}
	}
	for _, key := range stored {
		if _, ok := keep[key]; ok {
			continue
		}
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del stale %s: %w", key, err)
		}
	}
	return nil
}

// DeleteProject removes every stored block of a project.
func (r *Repo) DeleteProject(ctx context.Context, projectID string) error {
	keys, err := r.projectKeys(ctx, projectID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del %s: %w", key, err)
		}
	}
	return nil
}

// projectKeys lists the keys of every block indexed under projectID.
func (r *Repo) projectKeys(ctx context.Context, projectID string) ([]string, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName(r.prefix),
		Query:        db.TagFilter(fieldProjectID, projectID),
		Limit:        maxProjectBlocks,
		ReturnFields: []string{fieldOrder},
	})
	if err != nil {
		return nil, fmt.Errorf("project keys %s: %w", projectID, err)
	}
	if res == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

// SearchText runs a scored full-text search over searchable_text.
// An empty projectID searches every project. No match is not an error.
func (r *Repo) SearchText(ctx context.Context, query, projectID string, limit int) ([]domblock.Block, error) {
	match := db.TextMatch(fieldText, query)
	if match == "" {
		return nil, nil
	}
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName: indexName(r.prefix),
		Query:     db.And(r.projectFilter(projectID), match),
		TopK:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	return entriesToBlocks(res)
}

// SearchSubstring finds blocks whose searchable_text contains term, case-insensitively.
func (r *Repo) SearchSubstring(ctx context.Context, term, projectID string, limit int) ([]domblock.Block, error) {
	match := db.InfixMatch(fieldText, term)
	if match == "" {
		return nil, nil
	}
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: indexName(r.prefix),
		Query:     db.And(r.projectFilter(projectID), match),
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search substring %q: %w", term, err)
	}
	return entriesToBlocks(res)
}

// ProjectBlocks returns every block of a project sorted ascending by order.
func (r *Repo) ProjectBlocks(ctx context.Context, projectID string) ([]domblock.Block, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: indexName(r.prefix),
		Query:     db.TagFilter(fieldProjectID, projectID),
		SortBy:    fieldOrder,
		Limit:     maxProjectBlocks,
	})
	if err != nil {
		return nil, fmt.Errorf("project blocks %s: %w", projectID, err)
	}
	return entriesToBlocks(res)
}

// Sources returns the citation list of a project. ok is false when the
// project has no sources block.
func (r *Repo) Sources(ctx context.Context, projectID string) ([]domblock.Source, bool, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: indexName(r.prefix),
		Query: db.And(
			db.TagFilter(fieldProjectID, projectID),
			db.TagFilter(fieldType, string(domblock.TypeSources)),
		),
		SortBy: fieldOrder,
		Limit:  1,
	})
	if err != nil {
		return nil, false, fmt.Errorf("sources %s: %w", projectID, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return nil, false, nil
	}
	doc, err := decodeBlock(res.Entries[0].Fields["$"])
	if err != nil {
		return nil, false, err
	}
	for i := range doc.Sources {
		if doc.Sources[i].ProjectID == "" {
			doc.Sources[i].ProjectID = projectID
		}
	}
	return doc.Sources, true, nil
}

// Count returns the number of stored blocks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(r.prefix), "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

func (r *Repo) projectFilter(projectID string) string {
	if projectID == "" {
		return ""
	}
	return db.TagFilter(fieldProjectID, projectID)
}

func (r *Repo) blockKey(id string) string { return keyPrefix(r.prefix) + id }

// entriesToBlocks decodes search hits in result order; rank follows that order.
func entriesToBlocks(res *db.SearchResult) ([]domblock.Block, error) {
	if res == nil || len(res.Entries) == 0 {
		return nil, nil
	}
	blocks := make([]domblock.Block, 0, len(res.Entries))
	for _, e := range res.Entries {
		raw, ok := e.Fields["$"]
		if !ok || raw == "" {
			continue
		}
		doc, err := decodeBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		blocks = append(blocks, doc.Block)
	}
	return domblock.Ranked(blocks), nil
}
