package researchrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/researchrag/internal/domain"
	dombatch "github.com/kailas-cloud/researchrag/internal/domain/batch"
	domblock "github.com/kailas-cloud/researchrag/internal/domain/block"
	domchat "github.com/kailas-cloud/researchrag/internal/domain/chat"
	healthuc "github.com/kailas-cloud/researchrag/internal/usecase/health"
	"github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

func TestNew_NoStore(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no content store configured")
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown"}
	_, err := openStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	WithRedis("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "redis" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("redis options = %+v", cfg)
	}

	cfg2 := &clientConfig{}
	WithPostgres("postgres://localhost/research").apply(cfg2)
	if cfg2.driver != "postgres" || cfg2.postgresURL != "postgres://localhost/research" {
		t.Errorf("postgres options = %+v", cfg2)
	}

	cfg3 := &clientConfig{}
	WithTopics("daylighting", "mass timber").apply(cfg3)
	WithSearchLimit(10).apply(cfg3)
	WithCallTimeout(5 * time.Second).apply(cfg3)
	WithKeyPrefix("kb:").apply(cfg3)
	if len(cfg3.topics) != 2 || cfg3.searchLimit != 10 || cfg3.callTimeout != 5*time.Second || cfg3.keyPrefix != "kb:" {
		t.Errorf("pipeline options = %+v", cfg3)
	}

	cfg4 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg4)
	if cfg4.logger != logger {
		t.Error("expected logger to be set")
	}

	cfg5 := &clientConfig{}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg5)
	if cfg5.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}

	cfg6 := &clientConfig{}
	WithCompleter(&mockCompleter{}).apply(cfg6)
	WithWebSearcher(domain.NoopWebSearcher{}).apply(cfg6)
	if cfg6.completer == nil || cfg6.web == nil {
		t.Error("expected completer and web searcher to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	// Close на клиенте без store не паникует.
	c := &Client{}
	c.Close()
}

func TestAsk(t *testing.T) {
	var got rag.Request
	c := &Client{
		hasModel: true,
		pipeline: &mockPipeline{queryFn: func(_ context.Context, req rag.Request) domain.Response {
			got = req
			return domain.Response{
				Answer:     "Reverberation time matters [3].",
				Sources:    []domblock.Source{{ID: 3, Title: "Classroom Acoustics"}},
				BlocksUsed: []string{"b1", "b2"},
				ModelUsed:  domain.Mid,
			}
		}},
	}

	ans, err := c.Ask(context.Background(), "  classroom acoustics? ",
		[]Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}, "p1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got.Query != "classroom acoustics?" || got.ProjectID != "p1" {
		t.Errorf("request = %+v", got)
	}
	if len(got.History) != 2 || got.History[1].Role != domchat.RoleAssistant {
		t.Errorf("history = %+v", got.History)
	}
	if ans.Model != TierMid || len(ans.Sources) != 1 || ans.Sources[0].ID != 3 || len(ans.BlocksUsed) != 2 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestAsk_Validation(t *testing.T) {
	c := &Client{hasModel: true}
	if _, err := c.Ask(context.Background(), "   ", nil, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank query: err = %v", err)
	}

	c = &Client{}
	if _, err := c.Ask(context.Background(), "q", nil, ""); err == nil {
		t.Error("expected error without completer")
	}
}

func TestDeep(t *testing.T) {
	var got rag.DeepRequest
	c := &Client{
		hasModel: true,
		pipeline: &mockPipeline{deepenFn: func(_ context.Context, req rag.DeepRequest) domain.Response {
			got = req
			return domain.Response{Answer: "deeper", ModelUsed: domain.Deep}
		}},
	}

	ans, err := c.Deep(context.Background(), "acoustics", "short", nil, "")
	if err != nil {
		t.Fatalf("Deep: %v", err)
	}
	if got.PreviousAnswer != "short" || got.History != nil {
		t.Errorf("request = %+v", got)
	}
	if ans.Model != TierDeep || ans.Sources == nil || ans.BlocksUsed == nil {
		t.Errorf("answer = %+v", ans)
	}
}

func TestBlocks_Load(t *testing.T) {
	var loaded []domblock.Project
	c := &Client{loader: &mockLoader{loadFn: func(_ context.Context, p []domblock.Project) []dombatch.Result {
		loaded = p
		return []dombatch.Result{
			dombatch.NewOK("p1", 3),
			dombatch.NewError("p2", errors.New("duplicate block id")),
		}
	}}}

	results := c.Blocks().Load(context.Background(), []Project{
		{ID: "p1", Blocks: []Block{{ID: "b1", Type: "text", Order: 1, SourceIDs: []int{1}}}, Sources: []Source{{ID: 1, Title: "T"}}},
		{ID: "p2"},
	})

	if len(loaded) != 2 || loaded[0].Blocks[0].ProjectID != "p1" || loaded[0].Blocks[0].Type != domblock.Type("text") {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(results) != 2 || results[0].Blocks != 3 || results[0].Err != nil || results[1].Err == nil {
		t.Errorf("results = %+v", results)
	}
}

func TestBlocks_Delete(t *testing.T) {
	var deleted string
	c := &Client{loader: &mockLoader{deleteFn: func(_ context.Context, id string) error {
		deleted = id
		return nil
	}}}
	if err := c.Blocks().Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != "p1" {
		t.Errorf("deleted = %q", deleted)
	}

	c = &Client{loader: &mockLoader{deleteFn: func(context.Context, string) error {
		return fmt.Errorf("project id is required: %w", ErrInvalidInput)
	}}}
	if err := c.Blocks().Delete(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestBlocks_Count(t *testing.T) {
	svc := &BlockService{store: &mockCounter{n: 42}}
	n, err := svc.Count(context.Background())
	if err != nil || n != 42 {
		t.Errorf("Count = %d, %v", n, err)
	}

	svc = &BlockService{store: &mockCounter{err: errors.New("down")}}
	if _, err := svc.Count(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestHealth(t *testing.T) {
	c := &Client{healthSvc: &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "model": healthuc.CheckError},
	}}}
	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["model"] != "error" || h.Checks["database"] != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestCompleterAdapter(t *testing.T) {
	var gotTier Tier
	adapter := &completerAdapter{inner: &mockCompleter{
		fn: func(_ context.Context, _ string, tier Tier, _ int) (Completion, error) {
			gotTier = tier
			return Completion{Text: "ok", PromptTokens: 5, CompletionTokens: 7}, nil
		},
	}}

	ctx, usage := domain.NewContextWithLLMUsage(context.Background())
	res, err := adapter.Complete(ctx, "prompt", domain.Deep, 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotTier != TierDeep {
		t.Errorf("tier = %q, want deep", gotTier)
	}
	if res.TotalTokens != 12 || usage.TotalTokens() != 12 || usage.Calls() != 1 {
		t.Errorf("tokens = %d, usage = %d/%d", res.TotalTokens, usage.TotalTokens(), usage.Calls())
	}
}

func TestCompleterAdapter_Error(t *testing.T) {
	adapter := &completerAdapter{inner: &mockCompleter{
		fn: func(context.Context, string, Tier, int) (Completion, error) {
			return Completion{}, errors.New("provider down")
		},
	}}
	if _, err := adapter.Complete(context.Background(), "p", domain.Cheap, 10); err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestCompleterAdapter_HealthCheck(t *testing.T) {
	plain := &completerAdapter{inner: &mockCompleter{}}
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("plain completer: %v", err)
	}

	failing := &completerAdapter{inner: &healthyCompleter{mockCompleter{healthErr: errors.New("401")}}}
	if err := failing.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check error")
	}
}

func TestNoopCompleter(t *testing.T) {
	if _, err := (noopCompleter{}).Complete(context.Background(), "p", domain.Cheap, 10); err == nil {
		t.Fatal("expected error from noopCompleter")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("ask", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("ask", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "researchrag_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("researchrag_sdk_operations_total not found")
	}
}

func TestCompleterAdapter_CountsTokensByTier(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	adapter := &completerAdapter{obs: obs, inner: &mockCompleter{
		fn: func(context.Context, string, Tier, int) (Completion, error) {
			return Completion{Text: "ok", PromptTokens: 30, CompletionTokens: 12}, nil
		},
	}}

	for range 2 {
		if _, err := adapter.Complete(context.Background(), "p", domain.Mid, 50); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}

	if got := testutil.ToFloat64(obs.metrics.tokens.WithLabelValues("mid")); got != 84 {
		t.Errorf("mid tokens = %v, want 84", got)
	}
}

func TestObserver_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first newObserver: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second newObserver: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	// Проверяем что логгер не паникует при вызове.
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}
