package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterLLMMetrics()
	os.Exit(m.Run())
}

var testModels = map[domain.Tier]string{
	domain.Cheap: "small-model",
	domain.Mid:   "mid-model",
	domain.Deep:  "big-model",
}

func newTestCompleter(t *testing.T, url string) *Completer {
	t.Helper()
	c, err := NewCompleter(&Config{
		APIKey:  "test-key",
		BaseURL: url,
		Models:  testModels,
		Logger:  zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	return c
}

func chatResponse(content string, prompt, completion int) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "mid-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}
}

func TestCompleter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "mid-model" {
			t.Errorf("tier mid should map to mid-model, got %s", req.Model)
		}
		if req.MaxTokens != 1500 {
			t.Errorf("unexpected max_tokens %d", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse("Acoustics matter [10].", 40, 8))
	}))
	defer server.Close()

	c := newTestCompleter(t, server.URL)
	got, err := c.Complete(context.Background(), "hello", domain.Mid, 1500)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Text != "Acoustics matter [10]." {
		t.Errorf("unexpected text %q", got.Text)
	}
	if got.PromptTokens != 40 || got.CompletionTokens != 8 || got.TotalTokens != 48 {
		t.Errorf("unexpected usage %+v", got)
	}
}

func TestCompleter_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
	}))
	defer server.Close()

	_, err := newTestCompleter(t, server.URL).Complete(context.Background(), "hi", domain.Cheap, 10)
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}

func TestCompleter_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestCompleter(t, server.URL).Complete(context.Background(), "hi", domain.Cheap, 10)
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError for 429, got %v", err)
	}
}

func TestCompleter_GatewayDetailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"upstream unavailable"}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(t, server.URL).Complete(context.Background(), "hi", domain.Deep, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Errorf("expected ErrModelProviderError, got %v", err)
	}
}

func TestParseAPIError_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:443: connection refused")
	err := parseAPIError(cause)

	if !errors.Is(err, cause) {
		t.Errorf("cause lost: %v", err)
	}
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Errorf("expected ErrModelProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("message %q does not carry the cause", err)
	}
}

func TestCompleter_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := newTestCompleter(t, addr).Complete(context.Background(), "hi", domain.Mid, 10)
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Errorf("expected the transport error in the chain, got %v", err)
	}
}

func TestNewCompleter_MissingTier(t *testing.T) {
	_, err := NewCompleter(&Config{
		APIKey: "k",
		Models: map[domain.Tier]string{domain.Cheap: "a", domain.Mid: "b"},
	})
	if err == nil {
		t.Fatal("expected error for missing deep tier model")
	}
}

func TestCompleter_Model(t *testing.T) {
	c := newTestCompleter(t, "http://unused")
	if c.Model(domain.Deep) != "big-model" {
		t.Errorf("unexpected deep model %s", c.Model(domain.Deep))
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"nope"}`)); got != "nope" {
		t.Errorf("got %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("got %q", got)
	}
}
