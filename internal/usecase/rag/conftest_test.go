package rag

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterRAGMetrics()
	os.Exit(m.Run())
}

var errBoom = errors.New("boom")

// --- Mocks ---

type mockStore struct {
	mu sync.Mutex

	text    []block.Block
	textErr error

	substr    map[string][]block.Block
	substrErr map[string]error

	projects    map[string][]block.Block
	projectsErr error

	sources    map[string][]block.Source
	sourcesErr error

	panicOnText bool

	textCalls      int
	substrTerms    []string
	substrLimits   []int
	projectCalls   int
	sourcesProject string
}

func (m *mockStore) SearchText(_ context.Context, _, _ string, _ int) ([]block.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls++
	if m.panicOnText {
		panic("store exploded")
	}
	return m.text, m.textErr
}

func (m *mockStore) SearchSubstring(_ context.Context, term, _ string, limit int) ([]block.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.substrTerms = append(m.substrTerms, term)
	m.substrLimits = append(m.substrLimits, limit)
	if err := m.substrErr[term]; err != nil {
		return nil, err
	}
	found := m.substr[term]
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (m *mockStore) ProjectBlocks(_ context.Context, projectID string) ([]block.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectCalls++
	if m.projectsErr != nil {
		return nil, m.projectsErr
	}
	return m.projects[projectID], nil
}

func (m *mockStore) Sources(_ context.Context, projectID string) ([]block.Source, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourcesProject = projectID
	if m.sourcesErr != nil {
		return nil, false, m.sourcesErr
	}
	src, ok := m.sources[projectID]
	return src, ok, nil
}

type modelCall struct {
	prompt string
	tier   domain.Tier
	max    int
}

type mockModel struct {
	mu      sync.Mutex
	respond func(prompt string, tier domain.Tier) (string, error)
	calls   []modelCall
}

func (m *mockModel) Complete(_ context.Context, prompt string, tier domain.Tier, maxTokens int) (domain.Completion, error) {
	m.mu.Lock()
	m.calls = append(m.calls, modelCall{prompt: prompt, tier: tier, max: maxTokens})
	m.mu.Unlock()

	if m.respond == nil {
		return domain.Completion{}, errBoom
	}
	text, err := m.respond(prompt, tier)
	if err != nil {
		return domain.Completion{}, err
	}
	return domain.Completion{Text: text, TotalTokens: len(text)}, nil
}

// callsWith returns calls whose prompt starts with header.
func (m *mockModel) callsWith(header string) []modelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []modelCall
	for _, c := range m.calls {
		if strings.HasPrefix(c.prompt, header) {
			out = append(out, c)
		}
	}
	return out
}

type reply struct {
	text string
	err  error
}

// routed answers by prompt header; unknown prompts fail.
func routed(replies map[string]reply) func(string, domain.Tier) (string, error) {
	return func(prompt string, _ domain.Tier) (string, error) {
		for header, r := range replies {
			if strings.HasPrefix(prompt, header) {
				return r.text, r.err
			}
		}
		return "", errors.New("unexpected prompt")
	}
}

type mockWeb struct {
	text        string
	err         error
	calls       int
	lastQuery   string
	lastContext string
}

func (m *mockWeb) Search(_ context.Context, query, searchContext string) (string, error) {
	m.calls++
	m.lastQuery = query
	m.lastContext = searchContext
	return m.text, m.err
}

// --- Helpers ---

func newTestService(store *mockStore, model *mockModel, web domain.WebSearcher) *Service {
	if store == nil {
		store = &mockStore{}
	}
	if model == nil {
		model = &mockModel{}
	}
	return New(store, model, web, Config{Topics: []string{"classroom acoustics", "daylighting"}}, nil)
}

func leaf(id, project string, order int, sourceIDs ...int) block.Block {
	return block.Block{
		ID:             id,
		ProjectID:      project,
		Type:           "text",
		Order:          order,
		Summary:        "summary of " + id,
		SearchableText: "text of " + id,
		SourceIDs:      sourceIDs,
	}
}

func section(id, project string, order int) block.Block {
	return block.Block{ID: id, ProjectID: project, Type: block.TypeSection, Order: order, Summary: id}
}

func sourcesBlock(id, project string, order int) block.Block {
	return block.Block{ID: id, ProjectID: project, Type: block.TypeSources, Order: order}
}

func ids(blocks []block.Block) []string { return block.IDs(blocks) }

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assertRanked(t interface{ Errorf(string, ...any) }, blocks []block.Block) {
	for i := range blocks {
		if blocks[i].Rank != i+1 {
			t.Errorf("block %s rank = %d, want %d", blocks[i].ID, blocks[i].Rank, i+1)
		}
	}
}
