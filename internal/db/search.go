package db

// TextQuery is the input for scored full-text search.
// Query is a complete FT.SEARCH query string; callers escape user input.
type TextQuery struct {
	IndexName    string
	Query        string
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for unscored, optionally sorted listing.
type ListQuery struct {
	IndexName    string
	Query        string
	SortBy       string
	Descending   bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
