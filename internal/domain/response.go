package domain

import "github.com/kailas-cloud/researchrag/internal/domain/block"

// Response is the outcome of one pipeline run.
type Response struct {
	Answer     string         `json:"answer"`
	Sources    []block.Source `json:"sources"`
	BlocksUsed []string       `json:"blocks_used"`
	ModelUsed  Tier           `json:"model_used"`
}

// Relevance is the relevance filter verdict for a candidate block list.
type Relevance struct {
	Relevant         bool     `json:"relevant"`
	RelevantBlockIDs []string `json:"relevantBlockIds"`
	Reasoning        string   `json:"reasoning"`
}
