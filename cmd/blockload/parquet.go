package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	researchrag "github.com/kailas-cloud/researchrag/pkg/sdk"
)

// sourcesSuffix marks parquet exports holding the citation table instead of blocks.
const sourcesSuffix = ".sources.parquet"

// readBatch is the number of rows decoded per GenericReader call.
const readBatch = 512

// blockRow is one block of the flat warehouse export.
type blockRow struct {
	ProjectID      string   `parquet:"project_id"`
	ID             string   `parquet:"block_id"`
	Type           string   `parquet:"block_type"`
	Order          int64    `parquet:"order"`
	Summary        string   `parquet:"summary,optional"`
	Conclusions    []string `parquet:"conclusions,list"`
	SourceIDs      []int64  `parquet:"source_ids,list"`
	SearchableText string   `parquet:"searchable_text"`
}

type sourceRow struct {
	ProjectID string `parquet:"project_id"`
	ID        int64  `parquet:"source_id"`
	Title     string `parquet:"title"`
	Author    string `parquet:"author,optional"`
	URL       string `parquet:"url,optional"`
}

// parquetSet groups rows of several parquet files into projects, in first-seen order.
type parquetSet struct {
	order    []string
	projects map[string]*researchrag.Project
}

func newParquetSet() *parquetSet {
	return &parquetSet{projects: make(map[string]*researchrag.Project)}
}

func (s *parquetSet) project(id string) *researchrag.Project {
	p, ok := s.projects[id]
	if !ok {
		p = &researchrag.Project{ID: id}
		s.projects[id] = p
		s.order = append(s.order, id)
	}
	return p
}

func (s *parquetSet) addFile(path string) error {
	if strings.HasSuffix(path, sourcesSuffix) {
		rows, err := readParquet[sourceRow](path)
		if err != nil {
			return err
		}
		for _, r := range rows {
			p := s.project(r.ProjectID)
			p.Sources = append(p.Sources, researchrag.Source{
				ID:        int(r.ID),
				ProjectID: r.ProjectID,
				Title:     r.Title,
				Author:    r.Author,
				URL:       r.URL,
			})
		}
		return nil
	}

	rows, err := readParquet[blockRow](path)
	if err != nil {
		return err
	}
	for _, r := range rows {
		p := s.project(r.ProjectID)
		ids := make([]int, len(r.SourceIDs))
		for i, id := range r.SourceIDs {
			ids[i] = int(id)
		}
		p.Blocks = append(p.Blocks, researchrag.Block{
			ID:             r.ID,
			Type:           r.Type,
			Order:          int(r.Order),
			Summary:        r.Summary,
			Conclusions:    r.Conclusions,
			SourceIDs:      ids,
			SearchableText: r.SearchableText,
		})
	}
	return nil
}

func (s *parquetSet) list() []researchrag.Project {
	out := make([]researchrag.Project, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.projects[id])
	}
	return out
}

func readParquet[T any](path string) ([]T, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[T](pf)
	defer func() { _ = reader.Close() }()

	out := make([]T, 0, reader.NumRows())
	for {
		// fresh buffer each batch: decoded slices must not alias earlier rows
		buf := make([]T, readBatch)
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		if n == 0 {
			return out, nil
		}
	}
}
