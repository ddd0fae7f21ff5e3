package researchrag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/config"
	dbRedis "github.com/kailas-cloud/researchrag/internal/db/redis"
	"github.com/kailas-cloud/researchrag/internal/domain"
	dombatch "github.com/kailas-cloud/researchrag/internal/domain/batch"
	domblock "github.com/kailas-cloud/researchrag/internal/domain/block"
	blockrepo "github.com/kailas-cloud/researchrag/internal/repository/block"
	"github.com/kailas-cloud/researchrag/internal/repository/postgres"
	healthuc "github.com/kailas-cloud/researchrag/internal/usecase/health"
	"github.com/kailas-cloud/researchrag/internal/usecase/ingest"
	"github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "researchrag:"
)

// Внутренние интерфейсы для подмены в тестах.
type pipelineUseCase interface {
	Query(ctx context.Context, req rag.Request) domain.Response
	Deepen(ctx context.Context, req rag.DeepRequest) domain.Response
}

type loadUseCase interface {
	Load(ctx context.Context, projects []domblock.Project) []dombatch.Result
	Delete(ctx context.Context, projectID string) error
}

// blockStore is what the pipeline and loader need from a storage driver.
type blockStore interface {
	rag.BlockStore
	ingest.BlockWriter
	Count(ctx context.Context) (int, error)
}

// Client is the researchrag SDK entry point.
type Client struct {
	blocks    blockStore
	pipeline  pipelineUseCase
	loader    loadUseCase
	healthSvc healthUseCase
	hasModel  bool
	closeFn   func()
	obs       *observer
}

// New creates a Client and connects to the content store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("researchrag: content store required (use WithRedis or WithPostgres)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return wireClient(st, cfg, obs), nil
}

// store is an opened storage driver.
type store struct {
	blocks blockStore
	pinger healthuc.DBPinger
	close  func()
}

func openStore(ctx context.Context, cfg *clientConfig) (*store, error) {
	switch cfg.driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("researchrag: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("researchrag: database not ready: %w", err)
		}
		repo := blockrepo.New(s, cfg.keyPrefix)
		if err := repo.EnsureIndex(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("researchrag: ensure index: %w", err)
		}
		return &store{blocks: repo, pinger: s, close: s.Close}, nil
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, defaultReadinessTimeout)
		defer cancel()
		db, err := postgres.Connect(connectCtx, postgres.Config{URL: cfg.postgresURL})
		if err != nil {
			return nil, fmt.Errorf("researchrag: %w", err)
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("researchrag: %w", err)
		}
		return &store{blocks: postgres.NewBlockStore(db), pinger: db, close: func() { _ = db.Close() }}, nil
	default:
		return nil, fmt.Errorf("researchrag: unknown driver %q", cfg.driver)
	}
}

func wireClient(st *store, cfg *clientConfig, obs *observer) *Client {
	// Completer: noop если не задан (Blocks и Health работают, Ask вернёт ошибку)
	var model domain.Completer = noopCompleter{}
	var modelHealth healthuc.ModelChecker
	if cfg.completer != nil {
		adapter := &completerAdapter{inner: cfg.completer, obs: obs}
		model = adapter
		if _, ok := cfg.completer.(interface{ HealthCheck(context.Context) error }); ok {
			modelHealth = adapter
		}
	}

	topics := cfg.topics
	if len(topics) == 0 {
		topics = config.DefaultTopics
	}
	pipeline := rag.New(st.blocks, model, cfg.web, rag.Config{
		SearchLimit: cfg.searchLimit,
		CallTimeout: cfg.callTimeout,
		Topics:      topics,
	}, zap.NewNop())

	return &Client{
		blocks:    st.blocks,
		pipeline:  pipeline,
		loader:    ingest.New(st.blocks, zap.NewNop()),
		healthSvc: healthuc.New(st.pinger, modelHealth),
		hasModel:  cfg.completer != nil,
		closeFn:   st.close,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ask answers a question from the knowledge base. history holds earlier turns,
// oldest first. projectID optionally scopes retrieval to one project.
//
// Model and store failures never surface as errors: they turn into an apology
// or a conversational reply inside the Answer.
func (c *Client) Ask(ctx context.Context, query string, history []Message, projectID string) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	if err = c.validate(query); err != nil {
		return Answer{}, err
	}
	resp := c.pipeline.Query(ctx, rag.Request{
		Query:     strings.TrimSpace(query),
		History:   toInternalHistory(history),
		ProjectID: projectID,
	})
	return fromInternalResponse(resp), nil
}

// Deep expands an earlier answer with the deep model tier.
func (c *Client) Deep(
	ctx context.Context, query, previousAnswer string, history []Message, projectID string,
) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("deep", start, err) }()

	if err = c.validate(query); err != nil {
		return Answer{}, err
	}
	resp := c.pipeline.Deepen(ctx, rag.DeepRequest{
		Query:          strings.TrimSpace(query),
		PreviousAnswer: previousAnswer,
		History:        toInternalHistory(history),
		ProjectID:      projectID,
	})
	return fromInternalResponse(resp), nil
}

func (c *Client) validate(query string) error {
	if !c.hasModel {
		return errors.New("researchrag: completer not configured (use WithCompleter)")
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	return nil
}

// Blocks returns the content loading service.
func (c *Client) Blocks() *BlockService {
	return &BlockService{loader: c.loader, store: c.blocks, obs: c.obs}
}

// completerAdapter wraps public Completer to satisfy internal domain.Completer.
type completerAdapter struct {
	inner Completer
	obs   *observer
}

func (a *completerAdapter) Complete(
	ctx context.Context, prompt string, tier domain.Tier, maxTokens int,
) (domain.Completion, error) {
	r, err := a.inner.Complete(ctx, prompt, Tier(tier.String()), maxTokens)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	total := r.PromptTokens + r.CompletionTokens
	if u := domain.LLMUsageFromContext(ctx); u != nil {
		u.Record(tier, total)
	}
	a.obs.tokens(tier.String(), total)
	return domain.Completion{
		Text:             r.Text,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      total,
	}, nil
}

func (a *completerAdapter) HealthCheck(ctx context.Context) error {
	hc, ok := a.inner.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("model health check: %w", err)
	}
	return nil
}

// noopCompleter returns an error on Complete call (used when no completer configured).
type noopCompleter struct{}

func (noopCompleter) Complete(context.Context, string, domain.Tier, int) (domain.Completion, error) {
	return domain.Completion{}, errors.New("researchrag: completer not configured (use WithCompleter)")
}
