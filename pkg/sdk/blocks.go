package researchrag

import (
	"context"
	"fmt"
	"time"
)

// BlockService loads research content.
type BlockService struct {
	loader loadUseCase
	store  interface {
		Count(ctx context.Context) (int, error)
	}
	obs *observer
}

// Load validates and writes projects. Each project succeeds or fails on its own;
// a failing project does not stop the rest.
func (s *BlockService) Load(ctx context.Context, projects []Project) []LoadResult {
	start := time.Now()
	results := fromInternalResults(s.loader.Load(ctx, toInternalProjects(projects)))

	var err error
	if n := countFailed(results); n > 0 {
		err = fmt.Errorf("%d of %d projects failed", n, len(results))
	}
	s.obs.observe("load", start, err)
	return results
}

// Delete removes every stored block of a project, its sources block included.
func (s *BlockService) Delete(ctx context.Context, projectID string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("delete", start, err) }()

	if err = s.loader.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	return nil
}

// Count returns the number of stored blocks.
func (s *BlockService) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("count", start, err) }()

	n, err = s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

func countFailed(results []LoadResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
