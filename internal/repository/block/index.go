package block

import "github.com/kailas-cloud/researchrag/internal/db"

const (
	fieldProjectID = "project_id"
	fieldType      = "block_type"
	fieldOrder     = "order"
	fieldText      = "searchable_text"
)

// buildIndex describes the FT index over block JSON documents.
func buildIndex(prefix string) *db.IndexDefinition {
	return db.NewIndex(indexName(prefix)).
		OnJSON().
		Prefix(keyPrefix(prefix)).
		TagAs("$.project_id", fieldProjectID).
		TagAs("$.block_type", fieldType).
		SortableNumeric("$.order", fieldOrder).
		TextAs("$.searchable_text", fieldText).
		MustBuild()
}

func indexName(prefix string) string { return prefix + "blocks:idx" }

func keyPrefix(prefix string) string { return prefix + "block:" }
