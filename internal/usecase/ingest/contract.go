package ingest

import (
	"context"

	"github.com/kailas-cloud/researchrag/internal/domain/block"
)

// BlockWriter stores whole projects. ReplaceProject leaves exactly the
// snapshot's blocks under the project id; blocks of an earlier version that
// the snapshot no longer has are removed.
type BlockWriter interface {
	ReplaceProject(ctx context.Context, s block.Snapshot) error
	DeleteProject(ctx context.Context, projectID string) error
}
