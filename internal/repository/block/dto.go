package block

import (
	"encoding/json"
	"fmt"

	domblock "github.com/kailas-cloud/researchrag/internal/domain/block"
)

// blockDoc is the RedisJSON document shape. Sources is set only on sources blocks.
type blockDoc struct {
	domblock.Block
	Sources []domblock.Source `json:"sources,omitempty"`
}

func encodeBlock(b *domblock.Block, sources []domblock.Source) ([]byte, error) {
	data, err := json.Marshal(blockDoc{Block: *b, Sources: sources})
	if err != nil {
		return nil, fmt.Errorf("marshal block %s: %w", b.ID, err)
	}
	return data, nil
}

// decodeBlock parses a document returned by FT.SEARCH under the "$" field.
func decodeBlock(raw string) (blockDoc, error) {
	var doc blockDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return blockDoc{}, fmt.Errorf("unmarshal block: %w", err)
	}
	return doc, nil
}
