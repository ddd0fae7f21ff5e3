package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const braveURL = "https://api.search.brave.com/res/v1/web/search"

type brave struct {
	apiKey  string
	baseURL string
	k       int
	client  *http.Client
}

// search calls the Brave web search API.
// https://api.search.brave.com/app/documentation/web-search
func (b *brave) search(ctx context.Context, q string) ([]Result, error) {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	params := u.Query()
	params.Set("q", q)
	params.Set("count", strconv.Itoa(b.k))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", b.apiKey)

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	err = doJSON(b.client, req, func(r io.Reader) error { return json.NewDecoder(r).Decode(&raw) })
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(raw.Web.Results))
	for i, r := range raw.Web.Results {
		if i >= b.k {
			break
		}
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}
