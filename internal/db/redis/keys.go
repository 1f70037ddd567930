package redis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const metaPrefix = "elodex:index:"

// envelope is the stored form of a document.
type envelope struct {
	Type    string         `json:"_type"`
	Version int64          `json:"_version"`
	Source  map[string]any `json:"_source"`
}

func docKey(index, docType, id string) string {
	return index + ":" + docType + ":" + id
}

// searchIndex names the FT index of one document type.
func searchIndex(index, docType string) string {
	return index + ":" + docType
}

func metaKey(index string) string {
	return metaPrefix + index
}

// docID strips the FT index prefix from a document key.
func docID(ftIndex, key string) string {
	return strings.TrimPrefix(key, ftIndex+":")
}

// decodeEnvelope reads a document returned either as a bare object or as
// the one-element array produced by JSONPath $.
func decodeEnvelope(raw string) (envelope, error) {
	var env envelope
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var list []envelope
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return env, fmt.Errorf("decode document: %w", err)
		}
		if len(list) == 0 {
			return env, fmt.Errorf("decode document: empty result")
		}
		return list[0], nil
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return env, fmt.Errorf("decode document: %w", err)
	}
	return env, nil
}

// fieldAlias is the FT attribute name for a dotted source path.
func fieldAlias(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}
