package domain

import (
	"context"
	"sync"
)

type llmUsageKey struct{}

// LLMUsage collects model token usage for a single HTTP request.
// The handler puts a pointer into the context before calling the service,
// the completer decorator writes after each call, the handler reads it for response headers.
type LLMUsage struct {
	mu     sync.Mutex
	tokens map[Tier]int
	calls  int
}

// NewContextWithLLMUsage returns a context with an embedded usage collector.
func NewContextWithLLMUsage(ctx context.Context) (context.Context, *LLMUsage) {
	u := &LLMUsage{tokens: make(map[Tier]int)}
	return context.WithValue(ctx, llmUsageKey{}, u), u
}

// LLMUsageFromContext extracts the usage collector from context. Returns nil if not set.
func LLMUsageFromContext(ctx context.Context) *LLMUsage {
	u, _ := ctx.Value(llmUsageKey{}).(*LLMUsage)
	return u
}

// Record accounts one model call.
func (u *LLMUsage) Record(tier Tier, tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokens[tier] += tokens
	u.calls++
}

// TotalTokens returns tokens consumed across all tiers.
func (u *LLMUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, n := range u.tokens {
		total += n
	}
	return total
}

// TokensFor returns tokens consumed on one tier.
func (u *LLMUsage) TokensFor(tier Tier) int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens[tier]
}

// Calls returns the number of model calls made.
func (u *LLMUsage) Calls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
