package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
)

const researchIntent = `{"topic": "acoustics", "intent": "research_query", "searchTerms": ["classroom", "acoustics"], "relatedTopics": [], "contextSummary": "classroom noise"}`

func assertCheapFallback(t *testing.T, resp domain.Response) {
	t.Helper()
	if resp.ModelUsed != domain.Cheap {
		t.Errorf("model used = %s, want cheap", resp.ModelUsed)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("sources = %v, want empty", resp.Sources)
	}
	if resp.BlocksUsed == nil || len(resp.BlocksUsed) != 0 {
		t.Errorf("blocks used = %v, want empty", resp.BlocksUsed)
	}
	if resp.Answer == "" {
		t.Error("empty answer")
	}
}

func TestQuery_ScenarioA_GreetingIsConversational(t *testing.T) {
	store := &mockStore{}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:         {text: "Hello! How can I help?"},
		conversationalHeader: {text: "Hi! Ask me about our research."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "hi"})

	assertCheapFallback(t, resp)
	if resp.Answer != "Hi! Ask me about our research." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if store.textCalls != 0 {
		t.Error("search ran for conversational intent")
	}
	conv := model.callsWith(conversationalHeader)
	if len(conv) != 1 || !strings.Contains(conv[0].prompt, "sharpen") {
		t.Errorf("conversational calls = %+v", conv)
	}
}

func TestQuery_ScenarioB_CitedAnswer(t *testing.T) {
	b := leaf("b1", "p1", 1, 10)
	b.SearchableText = "Classroom acoustics affect learning outcomes"
	store := &mockStore{
		text: []block.Block{b},
		sources: map[string][]block.Source{
			"p1": {{ID: 10, ProjectID: "p1", Title: "X", Author: "Y"}, {ID: 11, ProjectID: "p1", Title: "Z"}},
		},
	}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:    {text: researchIntent},
		relevanceHeader: {text: `{"relevant": true, "relevantBlockIds": ["b1"], "reasoning": "direct"}`},
		synthesisHeader: {text: "Noise hurts comprehension [10]."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "tell me about classroom acoustics"})

	if !strings.Contains(resp.Answer, "[10]") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != 10 || resp.Sources[0].Title != "X" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if !equalStrings(resp.BlocksUsed, []string{"b1"}) {
		t.Errorf("blocks used = %v", resp.BlocksUsed)
	}
	if resp.ModelUsed != domain.Mid {
		t.Errorf("model used = %s", resp.ModelUsed)
	}
	if store.sourcesProject != "p1" {
		t.Errorf("sources project = %q, want first block's project", store.sourcesProject)
	}
	synth := model.callsWith(synthesisHeader)
	if len(synth) != 1 || !strings.Contains(synth[0].prompt, "[10] X — Y") || strings.Contains(synth[0].prompt, "[11]") {
		t.Errorf("synthesis prompt does not list exactly the referenced sources")
	}
}

func TestQuery_ScenarioC_SectionExpandedToChildren(t *testing.T) {
	store := &mockStore{
		text:     []block.Block{section("s1", "p", 1)},
		projects: map[string][]block.Block{"p": projectFixture()},
	}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:    {text: researchIntent},
		relevanceHeader: {text: `{"relevant": true, "relevantBlockIds": ["s1"], "reasoning": "chapter"}`},
		synthesisHeader: {text: "The chapter says so."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "what does the acoustics chapter conclude"})

	if !equalStrings(resp.BlocksUsed, []string{"a", "b"}) {
		t.Errorf("blocks used = %v, want [a b]", resp.BlocksUsed)
	}
	if resp.ModelUsed != domain.Mid {
		t.Errorf("model used = %s", resp.ModelUsed)
	}
}

func TestQuery_ScenarioD_RelevanceFailureFailsOpen(t *testing.T) {
	store := &mockStore{text: manyBlocks(12)}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:    {text: researchIntent},
		relevanceHeader: {err: errBoom},
		synthesisHeader: {text: "An answer from the top results."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "classroom acoustics findings overall"})

	if !equalStrings(resp.BlocksUsed, []string{"b1", "b2", "b3"}) {
		t.Errorf("blocks used = %v", resp.BlocksUsed)
	}
	if resp.ModelUsed != domain.Mid || resp.Answer != "An answer from the top results." {
		t.Errorf("resp = %+v", resp)
	}
}

func TestQuery_NoResultsUsesWebSearch(t *testing.T) {
	web := &mockWeb{text: "1. Acoustic panels (https://example.com)"}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:         {text: researchIntent},
		conversationalHeader: {text: "Our research does not cover that, but..."},
	})}
	svc := newTestService(&mockStore{}, model, web)

	resp := svc.Query(context.Background(), Request{Query: "best acoustic panels to buy"})

	assertCheapFallback(t, resp)
	if web.calls != 1 || web.lastQuery != "best acoustic panels to buy" || web.lastContext != "classroom noise" {
		t.Errorf("web = %+v", web)
	}
	conv := model.callsWith(conversationalHeader)
	if len(conv) != 1 {
		t.Fatalf("conversational calls = %d", len(conv))
	}
	p := conv[0].prompt
	if !strings.Contains(p, "Acoustic panels") || !strings.Contains(p, "does not cover") {
		t.Errorf("prompt = %q", p)
	}
	if len(model.callsWith(relevanceHeader)) != 0 {
		t.Error("relevance ran with no candidates")
	}
}

func TestQuery_NoResultsWebFailure(t *testing.T) {
	web := &mockWeb{err: errBoom}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:         {text: researchIntent},
		conversationalHeader: {text: "redirect"},
	})}
	svc := newTestService(&mockStore{}, model, web)

	resp := svc.Query(context.Background(), Request{Query: "something nobody researched"})

	assertCheapFallback(t, resp)
	p := model.callsWith(conversationalHeader)[0].prompt
	if strings.Contains(p, "Web search results") {
		t.Error("web context added after failure")
	}
}

func TestQuery_NotRelevant(t *testing.T) {
	store := &mockStore{text: manyBlocks(2)}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:         {text: researchIntent},
		relevanceHeader:      {text: `{"relevant": false, "relevantBlockIds": [], "reasoning": "off topic"}`},
		conversationalHeader: {text: "Could you clarify?"},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "classroom acoustics of submarines"})

	assertCheapFallback(t, resp)
	if len(model.callsWith(synthesisHeader)) != 0 {
		t.Error("synthesis ran")
	}
	if !strings.Contains(model.callsWith(conversationalHeader)[0].prompt, "sharpen") {
		t.Error("expected clarifying tone")
	}
}

func TestQuery_OnlyUnresolvableSections(t *testing.T) {
	store := &mockStore{text: []block.Block{section("s9", "p", 1)}, projectsErr: errBoom}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:         {text: researchIntent},
		relevanceHeader:      {text: `{"relevant": true, "relevantBlockIds": ["s9"]}`},
		conversationalHeader: {text: "Could you clarify?"},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "classroom acoustics chapter"})
	assertCheapFallback(t, resp)
}

func TestQuery_SourcesScopedToProjectID(t *testing.T) {
	store := &mockStore{
		text: []block.Block{leaf("b1", "other", 1, 1)},
		sources: map[string][]block.Source{
			"scoped": {{ID: 1, Title: "Scoped"}},
			"other":  {{ID: 1, Title: "Other"}},
		},
	}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:    {text: researchIntent},
		relevanceHeader: {text: `{"relevant": true, "relevantBlockIds": ["b1"]}`},
		synthesisHeader: {text: "See [1]."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "classroom acoustics", ProjectID: "scoped"})

	if store.sourcesProject != "scoped" {
		t.Errorf("sources project = %q", store.sourcesProject)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Title != "Scoped" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestQuery_SourcesStoreErrorStillAnswers(t *testing.T) {
	store := &mockStore{text: []block.Block{leaf("b1", "p", 1, 4)}, sourcesErr: errBoom}
	model := &mockModel{respond: routed(map[string]reply{
		intentHeader:    {text: researchIntent},
		relevanceHeader: {text: `{"relevant": true, "relevantBlockIds": ["b1"]}`},
		synthesisHeader: {text: "Answer citing [4]."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "classroom acoustics"})
	if resp.ModelUsed != domain.Mid || len(resp.Sources) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestQuery_EverythingFails(t *testing.T) {
	queries := []string{"", "hi", "what does research say about daylight in classrooms", strings.Repeat("word ", 200)}
	for i, q := range queries {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			store := &mockStore{
				textErr:     errBoom,
				substrErr:   map[string]error{},
				projectsErr: errBoom,
				sourcesErr:  errBoom,
			}
			for _, term := range fallbackTerms(q) {
				store.substrErr[term] = errBoom
			}
			svc := newTestService(store, &mockModel{}, &mockWeb{err: errBoom})

			resp := svc.Query(context.Background(), Request{Query: q, History: []chat.Message{}})
			assertCheapFallback(t, resp)
			if resp.Answer != ApologyMessage {
				t.Errorf("answer = %q", resp.Answer)
			}
		})
	}
}

func TestQuery_PanicRecovered(t *testing.T) {
	store := &mockStore{panicOnText: true}
	model := &mockModel{respond: routed(map[string]reply{intentHeader: {text: researchIntent}})}
	svc := newTestService(store, model, nil)

	resp := svc.Query(context.Background(), Request{Query: "classroom acoustics research"})

	assertCheapFallback(t, resp)
	if resp.Answer != ApologyMessage {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestQuery_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(&mockStore{}, &mockModel{}, nil)
	resp := svc.Query(ctx, Request{Query: "classroom acoustics research findings"})
	assertCheapFallback(t, resp)
}

func TestDeepen_DeepTier(t *testing.T) {
	store := &mockStore{
		text:    []block.Block{leaf("b1", "p", 1, 3)},
		sources: map[string][]block.Source{"p": {{ID: 3, Title: "Three"}}},
	}
	model := &mockModel{respond: routed(map[string]reply{
		relevanceHeader: {text: `{"relevant": true, "relevantBlockIds": ["b1"]}`},
		deepHeader:      {text: "A longer look [3]."},
	})}
	svc := newTestService(store, model, nil)

	resp := svc.Deepen(context.Background(), DeepRequest{
		Query:          "classroom acoustics",
		PreviousAnswer: "SHORT-ANSWER",
	})

	if resp.ModelUsed != domain.Deep {
		t.Errorf("model used = %s", resp.ModelUsed)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != 3 {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if len(model.callsWith(intentHeader)) != 0 {
		t.Error("deepen should not classify intent")
	}
	deep := model.callsWith(deepHeader)
	if len(deep) != 1 || !strings.Contains(deep[0].prompt, "SHORT-ANSWER") {
		t.Errorf("deep calls = %+v", deep)
	}
}

func TestDeepen_NoBlocksFallsBack(t *testing.T) {
	model := &mockModel{respond: routed(map[string]reply{conversationalHeader: {text: "nothing more to add"}})}
	svc := newTestService(&mockStore{}, model, nil)

	resp := svc.Deepen(context.Background(), DeepRequest{Query: "unknown subject entirely"})
	assertCheapFallback(t, resp)
}
