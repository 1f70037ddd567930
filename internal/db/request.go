package db

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/elodex/internal/domain/bulk"
)

// DocumentRequest addresses a single document write.
type DocumentRequest struct {
	Index   string
	Type    string
	ID      string
	Body    map[string]any
	Refresh bool
}

// WriteResponse is the backend report of a single write.
type WriteResponse struct {
	Index   string `json:"_index"`
	Type    string `json:"_type"`
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

// BulkItem is one action of a bulk request. Body is the document for
// create and index, the partial document for update, and unused for delete.
type BulkItem struct {
	Action bulk.Action
	Index  string
	Type   string
	ID     string
	Body   map[string]any
}

// BulkRequest is an ordered list of actions.
type BulkRequest struct {
	Items   []BulkItem
	Refresh bool
}

// BulkResponse holds one entry per request item, in request order.
type BulkResponse struct {
	Took   int          `json:"took"`
	Errors bool         `json:"errors"`
	Items  []bulk.Entry `json:"items"`
}

// SearchRequest is a structured search. Body is produced by query.Search.
type SearchRequest struct {
	Index   string
	Types   []string
	Body    map[string]any
	Version bool
	Scroll  time.Duration
}

// ScrollRequest fetches the next page of a cursor.
type ScrollRequest struct {
	ScrollID string
	Scroll   time.Duration
}

// CountRequest counts documents matching Body's query.
type CountRequest struct {
	Index string
	Types []string
	Body  map[string]any
}

// CountResponse is the count endpoint result.
type CountResponse struct {
	Count int64 `json:"count"`
}

// GetRequest fetches a single document.
type GetRequest struct {
	Index  string
	Type   string
	ID     string
	Source []string
}

// GetResponse is a fetched document.
type GetResponse struct {
	Index   string          `json:"_index"`
	Type    string          `json:"_type"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version,omitempty"`
	Found   bool            `json:"found"`
	Source  map[string]any  `json:"_source,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// MultiGetRequest fetches documents of one type by id.
type MultiGetRequest struct {
	Index  string
	Type   string
	IDs    []string
	Source []string
}

// MultiGetResponse holds one document per requested id, in request order.
type MultiGetResponse struct {
	Docs []GetResponse `json:"docs"`
}

// SearchResponse is the raw search result in Elasticsearch shape. Every
// backend renders its results this way.
type SearchResponse struct {
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	ScrollID     string                     `json:"_scroll_id,omitempty"`
	Shards       Shards                     `json:"_shards"`
	Hits         Hits                       `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
	Suggest      map[string][]Suggestion    `json:"suggest,omitempty"`
}

// Shards summarizes shard participation.
type Shards struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Hits is the hits section of a search response.
type Hits struct {
	Total    Total    `json:"total"`
	MaxScore *float64 `json:"max_score"`
	Hits     []Hit    `json:"hits"`
}

// Total accepts both the plain number and the {"value": n} forms.
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation,omitempty"`
}

// UnmarshalJSON decodes either form.
func (t *Total) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		t.Value = n
		t.Relation = "eq"
		return nil
	}
	type plain Total
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Total(p)
	return nil
}

// Hit is a single search hit.
type Hit struct {
	Index     string              `json:"_index"`
	Type      string              `json:"_type"`
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Version   *int64              `json:"_version,omitempty"`
	Source    map[string]any      `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
	Sort      []any               `json:"sort,omitempty"`
}

// Suggestion is one entry of a term suggester result.
type Suggestion struct {
	Text    string             `json:"text"`
	Offset  int                `json:"offset"`
	Length  int                `json:"length"`
	Options []SuggestionOption `json:"options"`
}

// SuggestionOption is one suggested replacement.
type SuggestionOption struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Freq  int     `json:"freq,omitempty"`
}

// AnalyzeRequest runs text through an analyzer.
type AnalyzeRequest struct {
	Index    string
	Analyzer string
	Field    string
	Text     []string
}

// AnalyzeResponse lists the produced tokens.
type AnalyzeResponse struct {
	Tokens []Token `json:"tokens"`
}

// Token is one analyzer output token.
type Token struct {
	Token       string `json:"token"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Type        string `json:"type"`
	Position    int    `json:"position"`
}
