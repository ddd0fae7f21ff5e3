package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/llmjson"
)

// FallbackReasoning explains a verdict made without a usable model answer.
const FallbackReasoning = "fallback: assuming top results are relevant"

const failOpenCount = 3

// CheckRelevance asks the cheap model which candidates answer the query.
// When the answer cannot be parsed the first three candidates are assumed relevant.
// Ids the model invents are dropped.
func (s *Service) CheckRelevance(ctx context.Context, query string, blocks []block.Block) domain.Relevance {
	if len(blocks) == 0 {
		return domain.Relevance{Reasoning: "no candidate blocks"}
	}
	defer observeStage("relevance")()

	text := s.invoke(ctx, relevancePrompt(query, blocks), domain.Cheap, s.cfg.MaxTokens.Relevance)

	rel, ok := llmjson.ParseOrDefault(text, domain.Relevance{})
	if !ok {
		s.log(ctx).Info("relevance verdict unparsable, failing open", zap.Int("candidates", len(blocks)))
		return domain.Relevance{
			Relevant:         true,
			RelevantBlockIDs: block.IDs(blocks[:min(failOpenCount, len(blocks))]),
			Reasoning:        FallbackReasoning,
		}
	}

	known := make(map[string]struct{}, len(blocks))
	for i := range blocks {
		known[blocks[i].ID] = struct{}{}
	}
	ids := make([]string, 0, len(rel.RelevantBlockIDs))
	for _, id := range rel.RelevantBlockIDs {
		if _, ok := known[id]; !ok {
			continue
		}
		delete(known, id)
		ids = append(ids, id)
	}
	rel.RelevantBlockIDs = ids
	return rel
}

// selectBlocks keeps the candidates whose ids are in ids, in candidate order.
func selectBlocks(candidates []block.Block, ids []string) []block.Block {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []block.Block
	for i := range candidates {
		if _, ok := want[candidates[i].ID]; ok {
			out = append(out, candidates[i])
		}
	}
	return out
}
