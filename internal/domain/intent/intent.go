package intent

import "strings"

// Kind is the intent category of a user utterance.
type Kind string

// Intent categories.
const (
	ResearchQuery  Kind = "research_query"
	Conversational Kind = "conversational"
	GeneralDesign  Kind = "general_design"
)

// Valid reports whether k is a known category.
func (k Kind) Valid() bool {
	switch k {
	case ResearchQuery, Conversational, GeneralDesign:
		return true
	}
	return false
}

// Result is an ephemeral classification outcome.
type Result struct {
	Topic          string   `json:"topic"`
	Intent         Kind     `json:"intent"`
	SearchTerms    []string `json:"searchTerms"`
	RelatedTopics  []string `json:"relatedTopics"`
	ContextSummary string   `json:"contextSummary"`
}

// SearchQuery joins search terms, falling back to the raw query when there are none.
func (r Result) SearchQuery(raw string) string {
	terms := make([]string, 0, len(r.SearchTerms))
	for _, t := range r.SearchTerms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return raw
	}
	return strings.Join(terms, " ")
}

// Heuristic classifies without a model: three tokens or fewer is conversational.
func Heuristic(query string) Result {
	tokens := strings.Fields(query)
	kind := ResearchQuery
	if len(tokens) <= 3 {
		kind = Conversational
	}

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) > 3 {
			terms = append(terms, strings.ToLower(tok))
		}
	}

	return Result{
		Intent:        kind,
		SearchTerms:   terms,
		RelatedTopics: []string{},
	}
}
