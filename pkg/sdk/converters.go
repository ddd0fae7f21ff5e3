package researchrag

import (
	"github.com/kailas-cloud/researchrag/internal/domain"
	dombatch "github.com/kailas-cloud/researchrag/internal/domain/batch"
	domblock "github.com/kailas-cloud/researchrag/internal/domain/block"
	domchat "github.com/kailas-cloud/researchrag/internal/domain/chat"
)

func toInternalHistory(history []Message) []domchat.Message {
	if len(history) == 0 {
		return nil
	}
	out := make([]domchat.Message, len(history))
	for i, m := range history {
		out[i] = domchat.Message{Role: domchat.Role(m.Role), Content: m.Content}
	}
	return out
}

func toInternalSource(s Source) domblock.Source {
	out := domblock.Source{ID: s.ID, ProjectID: s.ProjectID, Title: s.Title, Author: s.Author}
	if s.URL != "" {
		u := s.URL
		out.URL = &u
	}
	return out
}

func fromInternalSource(s domblock.Source) Source {
	out := Source{ID: s.ID, ProjectID: s.ProjectID, Title: s.Title, Author: s.Author}
	if s.URL != nil {
		out.URL = *s.URL
	}
	return out
}

func toInternalProjects(projects []Project) []domblock.Project {
	out := make([]domblock.Project, len(projects))
	for i, p := range projects {
		blocks := make([]domblock.Block, len(p.Blocks))
		for j, b := range p.Blocks {
			blocks[j] = domblock.Block{
				ID:             b.ID,
				ProjectID:      p.ID,
				Type:           domblock.Type(b.Type),
				Order:          b.Order,
				Summary:        b.Summary,
				Conclusions:    b.Conclusions,
				SourceIDs:      b.SourceIDs,
				SearchableText: b.SearchableText,
			}
		}
		var sources []domblock.Source
		if len(p.Sources) > 0 {
			sources = make([]domblock.Source, len(p.Sources))
			for j, s := range p.Sources {
				sources[j] = toInternalSource(s)
			}
		}
		out[i] = domblock.Project{ID: p.ID, Blocks: blocks, Sources: sources}
	}
	return out
}

func fromInternalResults(results []dombatch.Result) []LoadResult {
	out := make([]LoadResult, len(results))
	for i, r := range results {
		out[i] = LoadResult{ProjectID: r.ID(), Blocks: r.Blocks(), Err: r.Err()}
	}
	return out
}

func fromInternalResponse(r domain.Response) Answer {
	sources := make([]Source, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = fromInternalSource(s)
	}
	blocks := r.BlocksUsed
	if blocks == nil {
		blocks = []string{}
	}
	return Answer{
		Text:       r.Answer,
		Sources:    sources,
		BlocksUsed: blocks,
		Model:      Tier(r.ModelUsed.String()),
	}
}
