package researchrag

import "context"

// Tier is a model cost/quality level.
type Tier string

// Model tiers.
const (
	TierCheap Tier = "cheap"
	TierMid   Tier = "mid"
	TierDeep  Tier = "deep"
)

// Role is the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// Source is a citable reference of a research project.
type Source struct {
	ID        int
	ProjectID string
	Title     string
	Author    string
	URL       string // empty when absent
}

// Answer is the outcome of a question.
type Answer struct {
	Text string
	// Sources are the cited sources in ascending id order.
	Sources    []Source
	BlocksUsed []string
	Model      Tier
}

// Block is one unit of research content.
type Block struct {
	ID             string
	Type           string // "section", "sources" or a leaf tag such as "text"
	Order          int
	Summary        string
	Conclusions    []string
	SourceIDs      []int
	SearchableText string
}

// Project is a research write-up to load.
type Project struct {
	ID      string
	Blocks  []Block
	Sources []Source
}

// LoadResult is the outcome of loading one project.
type LoadResult struct {
	ProjectID string
	Blocks    int
	Err       error
}

// Completion is generated text with token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer generates text for a prompt at the given tier.
type Completer interface {
	Complete(ctx context.Context, prompt string, tier Tier, maxTokens int) (Completion, error)
}

// WebSearcher finds web results for a question. An empty string means no result.
type WebSearcher interface {
	Search(ctx context.Context, query, searchContext string) (string, error)
}
