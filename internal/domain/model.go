package domain

import "context"

// Completer is the shared text generation contract between layers.
type Completer interface {
	Complete(ctx context.Context, prompt string, tier Tier, maxTokens int) (Completion, error)
}

// HealthChecker verifies model provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Completion carries generated text and token usage through the decorator chain.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// WebSearcher queries an external web search provider.
// An empty string means no result and is not an error.
type WebSearcher interface {
	Search(ctx context.Context, query, searchContext string) (string, error)
}

// NoopWebSearcher never finds anything.
type NoopWebSearcher struct{}

// Search always returns an empty result.
func (NoopWebSearcher) Search(context.Context, string, string) (string, error) { return "", nil }
