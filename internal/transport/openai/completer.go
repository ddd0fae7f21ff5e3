package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

// Completer generates text via the OpenAI-compatible chat completions API.
// Tiers are resolved to concrete model ids here and nowhere else.
type Completer struct {
	client *openai.Client
	models map[domain.Tier]string
	user   string
	logger *zap.Logger
}

// Config holds the model provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	// Models maps every tier to a provider model id.
	Models map[domain.Tier]string
	User   string
	// Timeout bounds a single HTTP round trip to the provider. Zero keeps the client default.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *Config) (*Completer, error) {
	for _, t := range domain.Tiers {
		if strings.TrimSpace(cfg.Models[t]) == "" {
			return nil, fmt.Errorf("no model configured for tier %s", t)
		}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		models: cfg.Models,
		user:   cfg.User,
		logger: logger,
	}, nil
}

// Model returns the provider model id for a tier.
func (c *Completer) Model(tier domain.Tier) string { return c.models[tier] }

// Complete implements domain.Completer with transport-level metrics.
func (c *Completer) Complete(
	ctx context.Context, prompt string, tier domain.Tier, maxTokens int,
) (domain.Completion, error) {
	model, ok := c.models[tier]
	if !ok {
		return domain.Completion{}, fmt.Errorf("unknown tier %s: %w", tier, domain.ErrInvalidInput)
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
		User:      c.user,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	tierLabel := tier.String()
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(tierLabel, model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(tierLabel, model, errorType(err)).Inc()
		return domain.Completion{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(tierLabel, model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(tierLabel, model, "empty_response").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(tierLabel, model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(tierLabel, model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(tierLabel, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(tierLabel, model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	c.logger.Debug("Completion finished",
		zap.String("tier", tierLabel),
		zap.String("model", model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Duration("duration", duration),
	)

	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "api_error"
	}
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrModelProviderError for 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrModelProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("completion API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request: %w: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (gateway error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
