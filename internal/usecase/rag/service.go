package rag

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/logger"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

// ApologyMessage replaces the output of any model call that failed.
const ApologyMessage = "I'm sorry, I wasn't able to process that request right now. Please try again in a moment."

const (
	defaultSearchLimit = 25
	defaultCallTimeout = 30 * time.Second
)

// MaxTokens caps completion length per stage.
type MaxTokens struct {
	Intent         int
	Relevance      int
	Synthesis      int
	Deep           int
	Conversational int
}

// Config holds pipeline settings.
type Config struct {
	SearchLimit int
	// CallTimeout bounds every store, model and web search call.
	CallTimeout time.Duration
	// Topics is the vocabulary the knowledge base covers.
	Topics    []string
	MaxTokens MaxTokens
}

func (c Config) withDefaults() Config {
	if c.SearchLimit <= 0 {
		c.SearchLimit = defaultSearchLimit
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = defaultCallTimeout
	}
	m := &c.MaxTokens
	if m.Intent <= 0 {
		m.Intent = 500
	}
	if m.Relevance <= 0 {
		m.Relevance = 500
	}
	if m.Synthesis <= 0 {
		m.Synthesis = 1500
	}
	if m.Deep <= 0 {
		m.Deep = 4000
	}
	if m.Conversational <= 0 {
		m.Conversational = 600
	}
	return c
}

// Service runs the retrieval-augmented answer pipeline.
// It holds no mutable state; concurrent calls are independent.
type Service struct {
	store  BlockStore
	model  domain.Completer
	web    domain.WebSearcher
	cfg    Config
	logger *zap.Logger
}

// New creates a pipeline service. A nil web searcher disables the web fallback.
func New(store BlockStore, model domain.Completer, web domain.WebSearcher, cfg Config, l *zap.Logger) *Service {
	if web == nil {
		web = domain.NoopWebSearcher{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{store: store, model: model, web: web, cfg: cfg.withDefaults(), logger: l}
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// invoke calls the model and never fails: any error or timeout yields ApologyMessage.
func (s *Service) invoke(ctx context.Context, prompt string, tier domain.Tier, maxTokens int) string {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	c, err := s.model.Complete(callCtx, prompt, tier, maxTokens)
	if err != nil {
		s.log(ctx).Warn("model call failed",
			zap.Stringer("tier", tier),
			zap.Error(err),
		)
		return ApologyMessage
	}
	return c.Text
}

// observeStage starts a stage timer; call the result when the stage ends.
func observeStage(stage string) func() {
	start := time.Now()
	return func() {
		metrics.RAGStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
