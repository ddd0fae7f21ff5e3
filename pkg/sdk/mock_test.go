package researchrag

import (
	"context"

	"github.com/kailas-cloud/researchrag/internal/domain"
	dombatch "github.com/kailas-cloud/researchrag/internal/domain/batch"
	domblock "github.com/kailas-cloud/researchrag/internal/domain/block"
	healthuc "github.com/kailas-cloud/researchrag/internal/usecase/health"
	"github.com/kailas-cloud/researchrag/internal/usecase/rag"
)

// --- pipelineUseCase mock ---

type mockPipeline struct {
	queryFn  func(ctx context.Context, req rag.Request) domain.Response
	deepenFn func(ctx context.Context, req rag.DeepRequest) domain.Response
}

func (m *mockPipeline) Query(ctx context.Context, req rag.Request) domain.Response {
	return m.queryFn(ctx, req)
}

func (m *mockPipeline) Deepen(ctx context.Context, req rag.DeepRequest) domain.Response {
	return m.deepenFn(ctx, req)
}

// --- loadUseCase mock ---

type mockLoader struct {
	loadFn   func(ctx context.Context, projects []domblock.Project) []dombatch.Result
	deleteFn func(ctx context.Context, projectID string) error
}

func (m *mockLoader) Load(ctx context.Context, projects []domblock.Project) []dombatch.Result {
	return m.loadFn(ctx, projects)
}

func (m *mockLoader) Delete(ctx context.Context, projectID string) error {
	return m.deleteFn(ctx, projectID)
}

// --- block counter mock ---

type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) Count(context.Context) (int, error) { return m.n, m.err }

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- public Completer mock ---

type mockCompleter struct {
	fn        func(ctx context.Context, prompt string, tier Tier, maxTokens int) (Completion, error)
	healthErr error
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string, tier Tier, maxTokens int) (Completion, error) {
	return m.fn(ctx, prompt, tier, maxTokens)
}

type healthyCompleter struct {
	mockCompleter
}

func (h *healthyCompleter) HealthCheck(context.Context) error { return h.healthErr }
