package block

import (
	"errors"
	"fmt"
	"strings"
)

// Type is a block tag from the authoring vocabulary.
type Type string

const (
	// TypeSection is a structural heading with no content of its own.
	TypeSection Type = "section"
	// TypeSources holds the citation list of a project.
	TypeSources Type = "sources"
)

// IsLeaf reports whether the block carries synthesizable content.
func (t Type) IsLeaf() bool { return t != TypeSection && t != TypeSources }

// Block is an atomic unit of research content.
type Block struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"project_id"`
	Type           Type     `json:"block_type"`
	Order          int      `json:"order"`
	Summary        string   `json:"summary,omitempty"`
	Conclusions    []string `json:"conclusions,omitempty"`
	SourceIDs      []int    `json:"source_ids,omitempty"`
	SearchableText string   `json:"searchable_text,omitempty"`
	// Rank is the 1-based position in the list this block was returned in.
	Rank int `json:"-"`
}

// Validate checks required identity fields.
func (b *Block) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return errors.New("block id is required")
	}
	if strings.TrimSpace(b.ProjectID) == "" {
		return fmt.Errorf("block %q: project id is required", b.ID)
	}
	if b.Type == "" {
		return fmt.Errorf("block %q: block type is required", b.ID)
	}
	return nil
}

// Ranked reassigns ranks 1..n in list order. The input slice is modified in place.
func Ranked(blocks []Block) []Block {
	for i := range blocks {
		blocks[i].Rank = i + 1
	}
	return blocks
}

// IDs returns block ids in list order.
func IDs(blocks []Block) []string {
	ids := make([]string, len(blocks))
	for i := range blocks {
		ids[i] = blocks[i].ID
	}
	return ids
}

// ProjectIDs returns distinct project ids in first-seen order.
func ProjectIDs(blocks []Block) []string {
	seen := make(map[string]struct{}, len(blocks))
	var out []string
	for i := range blocks {
		p := blocks[i].ProjectID
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// UnionSourceIDs returns the distinct source ids referenced by blocks, in first-seen order.
func UnionSourceIDs(blocks []Block) []int {
	seen := make(map[int]struct{})
	var out []int
	for i := range blocks {
		for _, id := range blocks[i].SourceIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// SectionChildren returns the leaf blocks that belong to the section with the given id.
// ordered must hold one project's blocks sorted ascending by Order.
// Children are the blocks strictly between the section and the next section
// (or the end of the list), excluding section and sources blocks.
// The second value is false when the section is absent from ordered.
func SectionChildren(ordered []Block, sectionID string) ([]Block, bool) {
	start := -1
	for i := range ordered {
		if ordered[i].ID == sectionID && ordered[i].Type == TypeSection {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, false
	}

	var children []Block
	for i := start + 1; i < len(ordered); i++ {
		if ordered[i].Type == TypeSection {
			break
		}
		if ordered[i].Type == TypeSources {
			continue
		}
		children = append(children, ordered[i])
	}
	return children, true
}
