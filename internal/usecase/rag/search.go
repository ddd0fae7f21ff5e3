package rag

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/metrics"
)

const (
	minFallbackTermLen = 5 // runes; words must be longer than 4
	maxFallbackTerms   = 8
	perTermLimit       = 10
	fanout             = 8
)

// Search returns blocks matching query ranked from 1.
// Full-text search runs first; when it errors or finds nothing the query is
// split into terms and matched by substring. Never returns an error.
func (s *Service) Search(ctx context.Context, query, projectID string, limit int) []block.Block {
	defer observeStage("search")()

	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	l := s.log(ctx)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	primary, err := s.store.SearchText(callCtx, query, projectID, limit)
	cancel()
	if err != nil {
		l.Warn("full-text search failed, falling back to substring",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
	}
	if err == nil && len(primary) > 0 {
		metrics.RAGSearchTotal.WithLabelValues(metrics.StrategyFullText).Inc()
		return block.Ranked(capBlocks(primary, limit))
	}

	found := s.searchTerms(ctx, fallbackTerms(query), projectID, limit)
	if len(found) == 0 {
		metrics.RAGSearchTotal.WithLabelValues(metrics.StrategyEmpty).Inc()
		return []block.Block{}
	}
	metrics.RAGSearchTotal.WithLabelValues(metrics.StrategySubstring).Inc()
	return block.Ranked(found)
}

// searchTerms looks up every term concurrently and unions the results by id
// in term order, first occurrence winning.
func (s *Service) searchTerms(ctx context.Context, terms []string, projectID string, limit int) []block.Block {
	perTerm := make([][]block.Block, len(terms))

	var g errgroup.Group
	g.SetLimit(fanout)
	for i, term := range terms {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			defer cancel()
			found, err := s.store.SearchSubstring(callCtx, term, projectID, perTermLimit)
			if err != nil {
				// a failed term contributes nothing; the others still count
				s.log(ctx).Warn("substring search failed",
					zap.String("term", term),
					zap.Error(err),
				)
				return nil
			}
			perTerm[i] = found
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var out []block.Block
	for _, found := range perTerm {
		for _, b := range found {
			if len(out) >= limit {
				return out
			}
			if _, ok := seen[b.ID]; ok {
				continue
			}
			seen[b.ID] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

// fallbackTerms returns up to eight distinct lowercase words longer than four characters.
func fallbackTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(w)) < minFallbackTermLen {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == maxFallbackTerms {
			break
		}
	}
	return terms
}

func capBlocks(blocks []block.Block, limit int) []block.Block {
	out := make([]block.Block, min(len(blocks), limit))
	copy(out, blocks)
	return out
}
