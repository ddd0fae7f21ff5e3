package rag

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/researchrag/internal/domain"
	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
)

var citationRe = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// Synthesize writes a cited answer from blocks at the mid tier.
func (s *Service) Synthesize(
	ctx context.Context, query string, blocks []block.Block, sources []block.Source, history []chat.Message,
) string {
	defer observeStage("synthesis")()
	return s.invoke(ctx, synthesisPrompt(query, blocks, sources, history), domain.Mid, s.cfg.MaxTokens.Synthesis)
}

// DeepAnalysis extends a previous answer at the deep tier.
func (s *Service) DeepAnalysis(
	ctx context.Context, query, previousAnswer string,
	blocks []block.Block, sources []block.Source, history []chat.Message,
) string {
	defer observeStage("deep_analysis")()
	prompt := deepPrompt(query, previousAnswer, blocks, sources, history)
	return s.invoke(ctx, prompt, domain.Deep, s.cfg.MaxTokens.Deep)
}

// ExtractCitations returns the distinct source ids cited as [n] or [n, m] in answer, ascending.
func ExtractCitations(answer string) []int {
	var ids []int
	for _, m := range citationRe.FindAllStringSubmatch(answer, -1) {
		for _, part := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				// out of int range
				continue
			}
			ids = append(ids, n)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// FilterCited returns the sources cited in answer, ascending by id.
// Cited ids with no matching source are ignored.
func FilterCited(answer string, sources []block.Source) []block.Source {
	cited := ExtractCitations(answer)
	out := make([]block.Source, 0, len(cited))
	for _, id := range cited {
		for _, src := range sources {
			if src.ID == id {
				out = append(out, src)
				break
			}
		}
	}
	return out
}
