// Package websearch adapts Brave and Serper search APIs to domain.WebSearcher.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/metrics"
	"github.com/kailas-cloud/researchrag/internal/version"
)

// Provider names a web search backend.
type Provider string

// Supported providers.
const (
	ProviderNone   Provider = "none"
	ProviderBrave  Provider = "brave"
	ProviderSerper Provider = "serper"
)

// ErrUnsupportedProvider is returned by New for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported web search provider")

// maxQueryLen keeps queries under provider limits (Brave caps q at 400 chars).
const maxQueryLen = 400

// Config holds web search provider settings.
type Config struct {
	Provider Provider
	APIKey   string
	// BaseURL overrides the provider endpoint (tests, proxies).
	BaseURL string
	Results int
	Timeout time.Duration
	Client  *http.Client
}

// Result is one organic search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

type searchFunc func(ctx context.Context, q string) ([]Result, error)

// Searcher runs a provider query and flattens the hits into prompt-ready text.
type Searcher struct {
	provider Provider
	search   searchFunc
}

// New builds the configured searcher. ProviderNone (or empty) yields a no-op.
func New(cfg Config) (domain.WebSearcher, error) {
	if cfg.Results <= 0 {
		cfg.Results = 5
	}
	if cfg.Client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		cfg.Client = &http.Client{Timeout: timeout}
	}

	switch cfg.Provider {
	case ProviderNone, "":
		return domain.NoopWebSearcher{}, nil
	case ProviderBrave:
		b := &brave{apiKey: cfg.APIKey, baseURL: orDefault(cfg.BaseURL, braveURL), k: cfg.Results, client: cfg.Client}
		return &Searcher{provider: ProviderBrave, search: b.search}, nil
	case ProviderSerper:
		s := &serper{apiKey: cfg.APIKey, baseURL: orDefault(cfg.BaseURL, serperURL), k: cfg.Results, client: cfg.Client}
		return &Searcher{provider: ProviderSerper, search: s.search}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// Search implements domain.WebSearcher. No hits yields "" and a nil error.
func (s *Searcher) Search(ctx context.Context, query, searchContext string) (string, error) {
	q := buildQuery(query, searchContext)
	if q == "" {
		return "", nil
	}

	results, err := s.search(ctx, q)
	if err != nil {
		metrics.WebSearchRequestsTotal.WithLabelValues(string(s.provider), "error").Inc()
		return "", fmt.Errorf("%s search: %w: %w", s.provider, err, domain.ErrWebSearchFailed)
	}
	if len(results) == 0 {
		metrics.WebSearchRequestsTotal.WithLabelValues(string(s.provider), "empty").Inc()
		return "", nil
	}
	metrics.WebSearchRequestsTotal.WithLabelValues(string(s.provider), "success").Inc()
	return formatResults(results), nil
}

func buildQuery(query, searchContext string) string {
	q := strings.TrimSpace(query)
	if c := strings.TrimSpace(searchContext); c != "" {
		q = strings.TrimSpace(q + " " + c)
	}
	if r := []rune(q); len(r) > maxQueryLen {
		q = string(r[:maxQueryLen])
	}
	return q
}

// formatResults renders hits as a numbered list for inclusion in prompts.
func formatResults(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, " (%s)", r.URL)
		}
		b.WriteString("\n")
		if r.Snippet != "" {
			b.WriteString("   " + r.Snippet + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func doJSON(client *http.Client, req *http.Request, into func(io.Reader) error) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return into(resp.Body)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
