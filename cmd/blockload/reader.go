package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	researchrag "github.com/kailas-cloud/researchrag/pkg/sdk"
)

// projectFile mirrors the authoring export format.
type projectFile struct {
	ID      string       `json:"id"`
	Blocks  []blockFile  `json:"blocks"`
	Sources []sourceFile `json:"sources"`
}

type blockFile struct {
	ID             string   `json:"id"`
	Type           string   `json:"block_type"`
	Order          int      `json:"order"`
	Summary        string   `json:"summary"`
	Conclusions    []string `json:"conclusions"`
	SourceIDs      []int    `json:"source_ids"`
	SearchableText string   `json:"searchable_text"`
}

type sourceFile struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// readProjects reads a single file or every *.json and *.parquet file of a directory,
// in name order. Parquet exports are grouped into projects after JSON ones.
func readProjects(path string) ([]researchrag.Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = inputFiles(path)
		if err != nil {
			return nil, err
		}
	}

	var out []researchrag.Project
	pq := newParquetSet()
	for _, f := range files {
		if filepath.Ext(f) == ".parquet" {
			if err := pq.addFile(f); err != nil {
				return nil, fmt.Errorf("read %s: %w", filepath.Base(f), err)
			}
			continue
		}
		projects, err := readFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(f), err)
		}
		out = append(out, projects...)
	}
	return append(out, pq.list()...), nil
}

func inputFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.parquet"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no json or parquet files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func readFile(path string) ([]researchrag.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeProjects(data)
}

// decodeProjects accepts one project object or an array of them.
func decodeProjects(data []byte) ([]researchrag.Project, error) {
	data = bytes.TrimSpace(data)
	var files []projectFile
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &files); err != nil {
			return nil, fmt.Errorf("decode projects: %w", err)
		}
	} else {
		var one projectFile
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		files = []projectFile{one}
	}

	out := make([]researchrag.Project, len(files))
	for i, f := range files {
		out[i] = toProject(f)
	}
	return out, nil
}

func toProject(f projectFile) researchrag.Project {
	p := researchrag.Project{ID: f.ID}
	for _, b := range f.Blocks {
		p.Blocks = append(p.Blocks, researchrag.Block{
			ID:             b.ID,
			Type:           b.Type,
			Order:          b.Order,
			Summary:        b.Summary,
			Conclusions:    b.Conclusions,
			SourceIDs:      b.SourceIDs,
			SearchableText: b.SearchableText,
		})
	}
	for _, s := range f.Sources {
		p.Sources = append(p.Sources, researchrag.Source{
			ID:        s.ID,
			ProjectID: f.ID,
			Title:     s.Title,
			Author:    s.Author,
			URL:       s.URL,
		})
	}
	return p
}
