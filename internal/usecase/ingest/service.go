package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	dombatch "github.com/kailas-cloud/researchrag/internal/domain/batch"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/logger"
)

// MaxBlocksPerProject bounds a single project write.
const MaxBlocksPerProject = 5000

// Service loads research projects with per-project error reporting.
type Service struct {
	w         BlockWriter
	logger    *zap.Logger
	maxBlocks int
}

// New creates an ingest service.
func New(w BlockWriter, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{w: w, logger: l, maxBlocks: MaxBlocksPerProject}
}

// WithMaxBlocks configures the per-project block limit.
func (s *Service) WithMaxBlocks(n int) *Service {
	if n > 0 {
		s.maxBlocks = n
	}
	return s
}

// Load validates and writes each project. A failing project does not stop the others.
func (s *Service) Load(ctx context.Context, projects []block.Project) []dombatch.Result {
	results := make([]dombatch.Result, len(projects))
	for i := range projects {
		if err := ctx.Err(); err != nil {
			results[i] = dombatch.NewError(projects[i].ID, err)
			continue
		}
		results[i] = s.loadOne(ctx, &projects[i])
	}
	return results
}

func (s *Service) loadOne(ctx context.Context, p *block.Project) dombatch.Result {
	l := logger.FromContextOr(ctx, s.logger).With(zap.String("project_id", p.ID))

	if len(p.Blocks) > s.maxBlocks {
		return dombatch.NewError(p.ID,
			fmt.Errorf("%w: %d blocks exceeds limit %d", domain.ErrInvalidInput, len(p.Blocks), s.maxBlocks))
	}
	if err := p.Normalize(); err != nil {
		l.Warn("project rejected", zap.Error(err))
		return dombatch.NewError(p.ID, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
	}

	snap := p.Snapshot()
	if err := s.w.ReplaceProject(ctx, snap); err != nil {
		return dombatch.NewError(p.ID, fmt.Errorf("write project: %w", err))
	}
	written := snap.Len()

	l.Info("project loaded", zap.Int("blocks", written), zap.Int("sources", len(p.Sources)))
	return dombatch.NewOK(p.ID, written)
}

// Delete removes every stored block of a project.
func (s *Service) Delete(ctx context.Context, projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if err := s.w.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	logger.FromContextOr(ctx, s.logger).Info("project deleted", zap.String("project_id", projectID))
	return nil
}
