package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

const acousticsProject = `{
  "id": "acoustics",
  "blocks": [
    {"id": "a1", "block_type": "section", "order": 1},
    {"id": "a2", "block_type": "text", "order": 2, "summary": "RT60 under 0.6s", "source_ids": [1],
     "searchable_text": "classroom reverberation time"}
  ],
  "sources": [{"id": 1, "title": "ANSI S12.60", "url": "https://ansi.org"}]
}`

func TestDecodeProjects_Object(t *testing.T) {
	got, err := decodeProjects([]byte(acousticsProject))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "acoustics" || len(got[0].Blocks) != 2 {
		t.Fatalf("projects = %+v", got)
	}
	b := got[0].Blocks[1]
	if b.Type != "text" || b.Order != 2 || b.SourceIDs[0] != 1 || b.SearchableText != "classroom reverberation time" {
		t.Errorf("block = %+v", b)
	}
	s := got[0].Sources[0]
	if s.ProjectID != "acoustics" || s.URL != "https://ansi.org" {
		t.Errorf("source = %+v", s)
	}
}

func TestDecodeProjects_Array(t *testing.T) {
	got, err := decodeProjects([]byte("\n [" + acousticsProject + `, {"id": "daylight", "blocks": []}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].ID != "daylight" {
		t.Errorf("projects = %+v", got)
	}
}

func TestDecodeProjects_Invalid(t *testing.T) {
	for _, in := range []string{"", "{", "[{]"} {
		if _, err := decodeProjects([]byte(in)); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestReadProjects_Directory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("b.json", `{"id": "second"}`)
	write("a.json", acousticsProject)
	write("notes.txt", "ignored")

	got, err := readProjects(dir)
	if err != nil {
		t.Fatalf("readProjects: %v", err)
	}
	if len(got) != 2 || got[0].ID != "acoustics" || got[1].ID != "second" {
		t.Errorf("projects = %+v", got)
	}
}

func TestReadProjects_Errors(t *testing.T) {
	if _, err := readProjects(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file: expected error")
	}
	if _, err := readProjects(t.TempDir()); err == nil {
		t.Error("empty directory: expected error")
	}
}

func TestReadProjects_Parquet(t *testing.T) {
	dir := t.TempDir()
	blocks := []blockRow{
		{ProjectID: "daylight", ID: "d1", Type: "section", Order: 1},
		{ProjectID: "daylight", ID: "d2", Type: "text", Order: 2, Summary: "glare control",
			Conclusions: []string{"use light shelves"}, SourceIDs: []int64{4}, SearchableText: "daylight glare"},
		{ProjectID: "timber", ID: "t1", Type: "text", Order: 1, SearchableText: "mass timber"},
	}
	sources := []sourceRow{{ProjectID: "daylight", ID: 4, Title: "IES LM-83", URL: "https://ies.org"}}
	if err := parquet.WriteFile(filepath.Join(dir, "export.parquet"), blocks); err != nil {
		t.Fatalf("write blocks: %v", err)
	}
	if err := parquet.WriteFile(filepath.Join(dir, "export"+sourcesSuffix), sources); err != nil {
		t.Fatalf("write sources: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(acousticsProject), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readProjects(dir)
	if err != nil {
		t.Fatalf("readProjects: %v", err)
	}
	if len(got) != 3 || got[0].ID != "acoustics" || got[1].ID != "daylight" || got[2].ID != "timber" {
		t.Fatalf("projects = %+v", got)
	}
	day := got[1]
	if len(day.Blocks) != 2 || len(day.Sources) != 1 {
		t.Fatalf("daylight = %+v", day)
	}
	b := day.Blocks[1]
	if b.Order != 2 || b.SourceIDs[0] != 4 || b.Conclusions[0] != "use light shelves" {
		t.Errorf("block = %+v", b)
	}
	if s := day.Sources[0]; s.ID != 4 || s.ProjectID != "daylight" || s.URL != "https://ies.org" {
		t.Errorf("source = %+v", s)
	}
}
