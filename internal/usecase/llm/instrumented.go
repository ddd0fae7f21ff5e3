package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/logger"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedCompleter wraps a Completer with budget enforcement, logging
// and per-request usage accounting. Transport metrics live in transport/openai.
type InstrumentedCompleter struct {
	inner  domain.Completer
	budget BudgetChecker
	logger *zap.Logger
}

// NewInstrumentedCompleter wraps a completer. budget may be nil (unlimited).
func NewInstrumentedCompleter(inner domain.Completer, budget BudgetChecker, l *zap.Logger) *InstrumentedCompleter {
	return &InstrumentedCompleter{inner: inner, budget: budget, logger: l}
}

// Complete checks the budget, delegates, then records usage.
func (p *InstrumentedCompleter) Complete(
	ctx context.Context, prompt string, tier domain.Tier, maxTokens int,
) (domain.Completion, error) {
	log := logger.FromContextOr(ctx, p.logger)

	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			log.Error("Model budget exceeded", zap.Stringer("tier", tier), zap.Error(err))
			return domain.Completion{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	result, err := p.inner.Complete(ctx, prompt, tier, maxTokens)
	duration := time.Since(start)

	if err != nil {
		log.Error("Completion request failed",
			zap.Stringer("tier", tier),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	domain.LLMUsageFromContext(ctx).Record(tier, result.TotalTokens)

	if p.budget != nil && result.TotalTokens > 0 {
		p.budget.Record(int64(result.TotalTokens))
		metrics.LLMBudgetTokensRemaining.WithLabelValues("daily").Set(float64(p.budget.RemainingDaily()))
		metrics.LLMBudgetTokensRemaining.WithLabelValues("monthly").Set(float64(p.budget.RemainingMonthly()))
	}

	log.Debug("Completion request completed",
		zap.Stringer("tier", tier),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
	)

	return result, nil
}
