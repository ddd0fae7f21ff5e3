package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain/block"
)

type projectBlocks struct {
	ordered []block.Block
	err     error
}

// ExpandSections replaces section blocks with their child content blocks.
// Other blocks pass through. Output is deduplicated by id in discovery order
// and ranked from 1. Sections that cannot be resolved are skipped.
func (s *Service) ExpandSections(ctx context.Context, blocks []block.Block) []block.Block {
	defer observeStage("expand")()
	l := s.log(ctx)

	projects := make(map[string]projectBlocks)
	seen := make(map[string]struct{}, len(blocks))
	out := make([]block.Block, 0, len(blocks))
	add := func(b block.Block) {
		if _, ok := seen[b.ID]; ok {
			return
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}

	for _, b := range blocks {
		if b.Type != block.TypeSection {
			add(b)
			continue
		}

		pb, ok := projects[b.ProjectID]
		if !ok {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			pb.ordered, pb.err = s.store.ProjectBlocks(callCtx, b.ProjectID)
			cancel()
			projects[b.ProjectID] = pb
		}
		if pb.err != nil {
			l.Warn("load project blocks failed, skipping section",
				zap.String("project_id", b.ProjectID),
				zap.String("section_id", b.ID),
				zap.Error(pb.err),
			)
			continue
		}

		children, found := block.SectionChildren(pb.ordered, b.ID)
		if !found {
			l.Info("section not found in project, skipping",
				zap.String("project_id", b.ProjectID),
				zap.String("section_id", b.ID),
			)
			continue
		}
		for _, c := range children {
			add(c)
		}
	}
	return block.Ranked(out)
}
