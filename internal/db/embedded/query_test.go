package embedded

import (
	"errors"
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/elodex/internal/db"
)

func TestTranslate_Kinds(t *testing.T) {
	tr := translator{types: []string{"doc"}}
	tests := []struct {
		name string
		node map[string]any
		want any
	}{
		{"match_all", map[string]any{"match_all": map[string]any{}}, &query.MatchAllQuery{}},
		{"empty bool", map[string]any{"bool": map[string]any{}}, &query.MatchAllQuery{}},
		{"term string", map[string]any{"term": map[string]any{"tag": "x"}}, &query.TermQuery{}},
		{"term bool", map[string]any{"term": map[string]any{"on": true}}, &query.BoolFieldQuery{}},
		{"term number", map[string]any{"term": map[string]any{"n": 3}}, &query.NumericRangeQuery{}},
		{"terms", map[string]any{"terms": map[string]any{"tag": []any{"a", "b"}}}, &query.DisjunctionQuery{}},
		{"date range", map[string]any{"range": map[string]any{
			"at": map[string]any{"gte": "2024-01-01 00:00:00"},
		}}, &query.DateRangeQuery{}},
		{"term range", map[string]any{"range": map[string]any{
			"name": map[string]any{"gte": "a", "lt": "m"},
		}}, &query.TermRangeQuery{}},
		{"multi_match all", map[string]any{"multi_match": map[string]any{
			"query": "x", "fields": []any{"*"},
		}}, &query.MatchQuery{}},
		{"multi_match fields", map[string]any{"multi_match": map[string]any{
			"query": "x", "fields": []any{"a^2", "b"},
		}}, &query.DisjunctionQuery{}},
		{"match phrase", map[string]any{"match_phrase": map[string]any{"a": "x y"}}, &query.MatchPhraseQuery{}},
		{"nested", map[string]any{"nested": map[string]any{
			"path": "tags", "query": map[string]any{"prefix": map[string]any{"tags.name": "go"}},
		}}, &query.PrefixQuery{}},
		{"ids", map[string]any{"ids": map[string]any{"values": []any{"1"}}}, &query.DocIDQuery{}},
		{"should only", map[string]any{"bool": map[string]any{
			"should": []any{map[string]any{"wildcard": map[string]any{"a": "x*"}}},
		}}, &query.BooleanQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.translate(tt.node)
			if err != nil {
				t.Fatalf("translate: %v", err)
			}
			if gotType, wantType := typeName(got), typeName(tt.want); gotType != wantType {
				t.Fatalf("expected %s, got %s", wantType, gotType)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *query.MatchAllQuery:
		return "match_all"
	case *query.TermQuery:
		return "term"
	case *query.BoolFieldQuery:
		return "bool_field"
	case *query.NumericRangeQuery:
		return "numeric_range"
	case *query.DisjunctionQuery:
		return "disjunction"
	case *query.DateRangeQuery:
		return "date_range"
	case *query.TermRangeQuery:
		return "term_range"
	case *query.MatchQuery:
		return "match"
	case *query.MatchPhraseQuery:
		return "match_phrase"
	case *query.PrefixQuery:
		return "prefix"
	case *query.DocIDQuery:
		return "doc_id"
	case *query.BooleanQuery:
		return "boolean"
	}
	return "other"
}

func TestTranslate_IDsUseTypedKeys(t *testing.T) {
	q, err := translator{types: []string{"doc"}}.translate(map[string]any{
		"ids": map[string]any{"values": []any{"1", "2"}},
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	ids := q.(*query.DocIDQuery).IDs
	if len(ids) != 2 || ids[0] != docID("doc", "1") {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestTranslate_Errors(t *testing.T) {
	tr := translator{}
	tests := []struct {
		name        string
		node        any
		unsupported bool
	}{
		{"unknown kind", map[string]any{"geo_shape": map[string]any{}}, true},
		{"exists", map[string]any{"exists": map[string]any{"field": "a"}}, true},
		{"not an object", "match_all", false},
		{"two keys", map[string]any{"match_all": map[string]any{}, "term": map[string]any{}}, false},
		{"bad boost", map[string]any{"multi_match": map[string]any{
			"query": "x", "fields": []any{"a^x"},
		}}, false},
		{"nested failure", map[string]any{"bool": map[string]any{
			"must": []any{map[string]any{"percolate": map[string]any{}}},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.translate(tt.node)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.unsupported != errors.Is(err, db.ErrNotSupported) {
				t.Fatalf("unexpected error kind: %v", err)
			}
		})
	}
}
