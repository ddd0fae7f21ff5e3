package rag

import (
	"context"

	"github.com/kailas-cloud/researchrag/internal/domain/block"
)

// BlockStore is the read side of the content store used by the pipeline.
type BlockStore interface {
	// SearchText runs a full-text query over searchable text. Empty projectID searches all projects.
	SearchText(ctx context.Context, query, projectID string, limit int) ([]block.Block, error)
	// SearchSubstring matches term case-insensitively inside searchable text.
	SearchSubstring(ctx context.Context, term, projectID string, limit int) ([]block.Block, error)
	// ProjectBlocks returns every block of a project sorted ascending by order.
	ProjectBlocks(ctx context.Context, projectID string) ([]block.Block, error)
	// Sources returns the citation list of a project. ok is false when the project has none.
	Sources(ctx context.Context, projectID string) (sources []block.Source, ok bool, err error)
}
