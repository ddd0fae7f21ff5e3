package rag

import (
	"context"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
	"github.com/kailas-cloud/researchrag/internal/domain/intent"
)

// ConversationContext shapes a reply that is not grounded in retrieved research.
type ConversationContext struct {
	Intent         intent.Kind
	Topic          string
	RelatedTopics  []string
	ContextSummary string
	// HasResearch asks for help clarifying the question; false redirects to covered topics.
	HasResearch bool
	History     []chat.Message
}

func conversationFrom(in intent.Result, history []chat.Message, hasResearch bool) ConversationContext {
	return ConversationContext{
		Intent:         in.Intent,
		Topic:          in.Topic,
		RelatedTopics:  in.RelatedTopics,
		ContextSummary: in.ContextSummary,
		HasResearch:    hasResearch,
		History:        history,
	}
}

// RespondConversationally replies at the cheap tier. The raw model text is returned.
func (s *Service) RespondConversationally(ctx context.Context, query string, cc ConversationContext) string {
	defer observeStage("conversational")()
	prompt := conversationalPrompt(query, cc, s.cfg.Topics)
	return s.invoke(ctx, prompt, domain.Cheap, s.cfg.MaxTokens.Conversational)
}
