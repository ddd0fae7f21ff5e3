package block

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Project is one research write-up: its ordered blocks and its citation list.
type Project struct {
	ID      string   `json:"id"`
	Blocks  []Block  `json:"blocks"`
	Sources []Source `json:"sources,omitempty"`
}

// SourcesBlockID names the sources block created for a project that has none.
func SourcesBlockID(projectID string) string { return projectID + ":sources" }

// Normalize fills block and source project ids, sorts blocks by order and
// checks the content invariants. Every problem found is reported.
//
// Invariants: block ids are unique, orders are unique, there is at most one
// sources block, source ids are unique, and leaf blocks only reference
// source ids present in Sources.
func (p *Project) Normalize() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("project id is required")
	}

	var errs []error
	for i := range p.Blocks {
		b := &p.Blocks[i]
		if b.ProjectID == "" {
			b.ProjectID = p.ID
		}
		if err := b.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if b.ProjectID != p.ID {
			errs = append(errs, fmt.Errorf("block %q belongs to project %q", b.ID, b.ProjectID))
		}
	}

	slices.SortStableFunc(p.Blocks, func(a, b Block) int { return a.Order - b.Order })

	ids := make(map[string]struct{}, len(p.Blocks))
	sourcesBlocks := 0
	for i := range p.Blocks {
		b := &p.Blocks[i]
		if _, dup := ids[b.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate block id %q", b.ID))
		}
		ids[b.ID] = struct{}{}
		if i > 0 && p.Blocks[i-1].Order == b.Order {
			errs = append(errs, fmt.Errorf("blocks %q and %q share order %d", p.Blocks[i-1].ID, b.ID, b.Order))
		}
		if b.Type == TypeSources {
			sourcesBlocks++
		}
	}
	if sourcesBlocks > 1 {
		errs = append(errs, fmt.Errorf("project has %d sources blocks, want at most one", sourcesBlocks))
	}

	known := make(map[int]struct{}, len(p.Sources))
	for i := range p.Sources {
		s := &p.Sources[i]
		if s.ProjectID == "" {
			s.ProjectID = p.ID
		}
		if _, dup := known[s.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate source id %d", s.ID))
		}
		known[s.ID] = struct{}{}
	}
	for i := range p.Blocks {
		b := &p.Blocks[i]
		if !b.Type.IsLeaf() {
			continue
		}
		for _, id := range b.SourceIDs {
			if _, ok := known[id]; !ok {
				errs = append(errs, fmt.Errorf("block %q cites unknown source %d", b.ID, id))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("project %q: %w", p.ID, err)
	}
	return nil
}

// SourcesBlock returns the id and order of the project's sources block.
// When the project has none, a new one is placed after the last block.
func (p *Project) SourcesBlock() (id string, order int) {
	last := 0
	for i := range p.Blocks {
		if p.Blocks[i].Type == TypeSources {
			return p.Blocks[i].ID, p.Blocks[i].Order
		}
		last = max(last, p.Blocks[i].Order)
	}
	return SourcesBlockID(p.ID), last + 1
}

// Snapshot is the complete stored form of a normalized project. Writing a
// snapshot replaces every block previously stored for the project.
type Snapshot struct {
	ProjectID string
	// Content holds every block except the sources block, in order.
	Content []Block
	// SourcesID is empty when the project stores no sources block.
	SourcesID    string
	SourcesOrder int
	Sources      []Source
}

// Snapshot splits a normalized project into content and its sources block.
// A sources block is stored when the project declares one or has sources.
func (p *Project) Snapshot() Snapshot {
	s := Snapshot{ProjectID: p.ID, Sources: p.Sources}
	hasSourcesBlock := false
	for i := range p.Blocks {
		if p.Blocks[i].Type == TypeSources {
			hasSourcesBlock = true
			continue
		}
		s.Content = append(s.Content, p.Blocks[i])
	}
	if hasSourcesBlock || len(p.Sources) > 0 {
		s.SourcesID, s.SourcesOrder = p.SourcesBlock()
	}
	return s
}

// SourcesBlock returns the stored sources block, ok false when there is none.
func (s *Snapshot) SourcesBlock() (Block, bool) {
	if s.SourcesID == "" {
		return Block{}, false
	}
	return Block{ID: s.SourcesID, ProjectID: s.ProjectID, Type: TypeSources, Order: s.SourcesOrder}, true
}

// BlockIDs lists every block id the snapshot stores, sources block last.
func (s *Snapshot) BlockIDs() []string {
	ids := IDs(s.Content)
	if s.SourcesID != "" {
		ids = append(ids, s.SourcesID)
	}
	return ids
}

// Len is the number of stored blocks, sources block included.
func (s *Snapshot) Len() int {
	if s.SourcesID != "" {
		return len(s.Content) + 1
	}
	return len(s.Content)
}
