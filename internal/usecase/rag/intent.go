package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
	"github.com/kailas-cloud/researchrag/internal/domain/intent"
	"github.com/kailas-cloud/researchrag/internal/llmjson"
)

// ClassifyIntent categorizes the query and extracts search terms.
// Unparsable model output or an unknown intent falls back to intent.Heuristic.
func (s *Service) ClassifyIntent(ctx context.Context, query string, history []chat.Message) intent.Result {
	defer observeStage("intent")()

	text := s.invoke(ctx, intentPrompt(query, history, s.cfg.Topics), domain.Cheap, s.cfg.MaxTokens.Intent)

	res, ok := llmjson.ParseOrDefault(text, intent.Result{})
	if !ok || !res.Intent.Valid() {
		s.log(ctx).Debug("intent fallback to heuristic", zap.Bool("parsed", ok))
		return intent.Heuristic(query)
	}
	if res.RelatedTopics == nil {
		res.RelatedTopics = []string{}
	}
	return res
}
