package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const serperURL = "https://google.serper.dev/search"

type serper struct {
	apiKey  string
	baseURL string
	k       int
	client  *http.Client
}

// search calls the Serper Google search API.
func (s *serper) search(ctx context.Context, q string) ([]Result, error) {
	body, err := json.Marshal(map[string]any{"q": q, "num": s.k})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	err = doJSON(s.client, req, func(r io.Reader) error { return json.NewDecoder(r).Decode(&raw) })
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(raw.Organic))
	for i, r := range raw.Organic {
		if i >= s.k {
			break
		}
		out = append(out, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}
