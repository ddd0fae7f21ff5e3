package block

import "strings"

// Source is a citable reference. IDs are unique within a project only.
type Source struct {
	ID        int     `json:"id"`
	ProjectID string  `json:"project_id,omitempty"`
	Title     string  `json:"title"`
	Author    string  `json:"author,omitempty"`
	URL       *string `json:"url,omitempty"`
}

// Citation formats the source for prompts: "Title — Author (URL)" with absent parts omitted.
func (s Source) Citation() string {
	var b strings.Builder
	b.WriteString(s.Title)
	if s.Author != "" {
		if b.Len() > 0 {
			b.WriteString(" — ")
		}
		b.WriteString(s.Author)
	}
	if s.URL != nil && *s.URL != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("(" + *s.URL + ")")
	}
	return b.String()
}

// IDSet returns the ids of sources as a set.
func IDSet(sources []Source) map[int]struct{} {
	set := make(map[int]struct{}, len(sources))
	for _, s := range sources {
		set[s.ID] = struct{}{}
	}
	return set
}
