package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
	"github.com/kailas-cloud/researchrag/internal/domain/intent"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

// Request is one question to the pipeline.
type Request struct {
	Query     string
	History   []chat.Message
	ProjectID string // optional scope
}

// DeepRequest asks for a deeper follow-up on a previous answer.
type DeepRequest struct {
	Query          string
	PreviousAnswer string
	History        []chat.Message
	ProjectID      string
}

type retrieval struct {
	blocks  []block.Block
	sources []block.Source
}

// Query answers a question from the research knowledge base.
// It never fails: every error degrades to a conversational reply.
func (s *Service) Query(ctx context.Context, req Request) (resp domain.Response) {
	defer s.recoverTo(ctx, &resp)

	in := s.ClassifyIntent(ctx, req.Query, req.History)
	if in.Intent == intent.Conversational {
		cc := conversationFrom(in, req.History, true)
		return s.converse(ctx, req.Query, cc, metrics.OutcomeConversational)
	}

	r, fallback, ok := s.retrieve(ctx, req.Query, in.SearchQuery(req.Query), req.ProjectID, in, req.History)
	if !ok {
		return fallback
	}

	answer := s.Synthesize(ctx, req.Query, r.blocks, r.sources, req.History)
	return s.answered(ctx, answer, r, domain.Mid)
}

// Deepen reruns retrieval for a follow-up and answers at the deep tier.
func (s *Service) Deepen(ctx context.Context, req DeepRequest) (resp domain.Response) {
	defer s.recoverTo(ctx, &resp)

	in := intent.Heuristic(req.Query)
	r, fallback, ok := s.retrieve(ctx, req.Query, in.SearchQuery(req.Query), req.ProjectID, in, req.History)
	if !ok {
		return fallback
	}

	answer := s.DeepAnalysis(ctx, req.Query, req.PreviousAnswer, r.blocks, r.sources, req.History)
	return s.answered(ctx, answer, r, domain.Deep)
}

// retrieve searches, filters and expands blocks and resolves their sources.
// When nothing usable is found it returns a conversational response and false.
func (s *Service) retrieve(
	ctx context.Context, query, searchQuery, projectID string, in intent.Result, history []chat.Message,
) (retrieval, domain.Response, bool) {
	candidates := s.Search(ctx, searchQuery, projectID, s.cfg.SearchLimit)
	if len(candidates) == 0 {
		cc := conversationFrom(in, history, false)
		outcome := metrics.OutcomeNoResults
		if web := s.webSearch(ctx, query, in.ContextSummary); web != "" {
			cc.ContextSummary = joinContext(cc.ContextSummary, web)
			outcome = metrics.OutcomeNoResultsWeb
		}
		return retrieval{}, s.converse(ctx, query, cc, outcome), false
	}

	rel := s.CheckRelevance(ctx, query, candidates)
	if !rel.Relevant || len(rel.RelevantBlockIDs) == 0 {
		s.log(ctx).Debug("no relevant blocks", zap.String("reasoning", rel.Reasoning))
		cc := conversationFrom(in, history, true)
		return retrieval{}, s.converse(ctx, query, cc, metrics.OutcomeNotRelevant), false
	}

	expanded := s.ExpandSections(ctx, selectBlocks(candidates, rel.RelevantBlockIDs))
	if len(expanded) == 0 {
		// only sections were selected and none could be resolved
		cc := conversationFrom(in, history, true)
		return retrieval{}, s.converse(ctx, query, cc, metrics.OutcomeNotRelevant), false
	}

	return retrieval{
		blocks:  expanded,
		sources: s.resolveSources(ctx, projectID, expanded),
	}, domain.Response{}, true
}

// resolveSources loads the sources referenced by blocks. The project is projectID
// when given, otherwise the project of the first block.
func (s *Service) resolveSources(ctx context.Context, projectID string, blocks []block.Block) []block.Source {
	ids := block.UnionSourceIDs(blocks)
	if len(ids) == 0 {
		return nil
	}
	if projectID == "" {
		projectID = blocks[0].ProjectID
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	all, ok, err := s.store.Sources(callCtx, projectID)
	if err != nil {
		s.log(ctx).Warn("load sources failed", zap.String("project_id", projectID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]block.Source, 0, len(ids))
	for _, src := range all {
		if _, ok := want[src.ID]; ok {
			out = append(out, src)
		}
	}
	return out
}

func (s *Service) webSearch(ctx context.Context, query, summary string) string {
	defer observeStage("web_search")()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	text, err := s.web.Search(callCtx, query, summary)
	if err != nil {
		s.log(ctx).Warn("web search failed", zap.Error(err))
		return ""
	}
	return text
}

func joinContext(summary, web string) string {
	if summary == "" {
		return "Web search results:\n" + web
	}
	return summary + "\n\nWeb search results:\n" + web
}

func (s *Service) converse(ctx context.Context, query string, cc ConversationContext, outcome string) domain.Response {
	answer := s.RespondConversationally(ctx, query, cc)
	metrics.RAGQueriesTotal.WithLabelValues(outcome).Inc()
	s.log(ctx).Info("rag query finished", zap.String("outcome", outcome))
	return domain.Response{
		Answer:     answer,
		Sources:    []block.Source{},
		BlocksUsed: []string{},
		ModelUsed:  domain.Cheap,
	}
}

func (s *Service) answered(ctx context.Context, answer string, r retrieval, tier domain.Tier) domain.Response {
	cited := FilterCited(answer, r.sources)
	metrics.RAGQueriesTotal.WithLabelValues(metrics.OutcomeAnswered).Inc()
	s.log(ctx).Info("rag query finished",
		zap.String("outcome", metrics.OutcomeAnswered),
		zap.Stringer("tier", tier),
		zap.Int("blocks", len(r.blocks)),
		zap.Int("sources_cited", len(cited)),
	)
	return domain.Response{
		Answer:     answer,
		Sources:    cited,
		BlocksUsed: block.IDs(r.blocks),
		ModelUsed:  tier,
	}
}

// recoverTo turns a panic in a collaborator into the apology response.
func (s *Service) recoverTo(ctx context.Context, resp *domain.Response) {
	if r := recover(); r != nil {
		s.log(ctx).Error("rag pipeline panic", zap.Any("panic", r), zap.Stack("stack"))
		*resp = domain.Response{
			Answer:     ApologyMessage,
			Sources:    []block.Source{},
			BlocksUsed: []string{},
			ModelUsed:  domain.Cheap,
		}
	}
}
