package db

import (
	"fmt"
	"sort"
	"strconv"
)

// Helpers for backends that interpret the Elasticsearch query DSL
// themselves. Bodies arrive either from the query builder or decoded from
// JSON, so slices may be []any or []string and numbers may be any numeric
// Go type.

// Clause splits a {kind: body} query node.
func Clause(node any) (string, map[string]any, error) {
	m, ok := node.(map[string]any)
	if !ok || len(m) != 1 {
		return "", nil, fmt.Errorf("query clause must be an object with one key, got %T", node)
	}
	for kind, raw := range m {
		body, ok := raw.(map[string]any)
		if !ok {
			return "", nil, fmt.Errorf("%s: body must be an object, got %T", kind, raw)
		}
		return kind, body, nil
	}
	return "", nil, nil
}

// FieldValue extracts the single field of a leaf clause and its value. The
// long form {field: {key: value, ...}} returns the inner map as params.
func FieldValue(body map[string]any, key string) (string, any, map[string]any, error) {
	var field string
	for name := range body {
		if name == "boost" || name == "_name" {
			continue
		}
		if field != "" {
			return "", nil, nil, fmt.Errorf("clause targets more than one field: %s, %s", field, name)
		}
		field = name
	}
	if field == "" {
		return "", nil, nil, fmt.Errorf("clause has no field")
	}
	if inner, ok := body[field].(map[string]any); ok {
		v, ok := inner[key]
		if !ok {
			return "", nil, nil, fmt.Errorf("%s: missing %q", field, key)
		}
		return field, v, inner, nil
	}
	return field, body[field], nil, nil
}

// List returns the elements of a []any, []string or single value.
func List(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// Strings converts a list of strings.
func Strings(v any) []string {
	items := List(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Number converts JSON or Go numbers, and numeric strings, to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Int converts a number to int, returning def when v is absent or invalid.
func Int(v any, def int) int {
	if f, ok := Number(v); ok {
		return int(f)
	}
	return def
}

// SortSpec is one decoded sort entry.
type SortSpec struct {
	Field string
	Desc  bool
}

// Sorts decodes the sort section: "field", {"field": "desc"} or
// {"field": {"order": "desc"}}. Map entries are read in key order.
func Sorts(v any) []SortSpec {
	var out []SortSpec
	for _, item := range List(v) {
		switch s := item.(type) {
		case string:
			out = append(out, SortSpec{Field: s, Desc: s == "_score"})
		case map[string]any:
			fields := make([]string, 0, len(s))
			for f := range s {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			for _, f := range fields {
				order := ""
				switch o := s[f].(type) {
				case string:
					order = o
				case map[string]any:
					order, _ = o["order"].(string)
				}
				desc := order == "desc" || (order == "" && f == "_score")
				out = append(out, SortSpec{Field: f, Desc: desc})
			}
		}
	}
	return out
}

// FilterSource keeps only the listed top-level fields. An empty list keeps all.
func FilterSource(src map[string]any, fields []string) map[string]any {
	if len(fields) == 0 || src == nil {
		return src
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := src[f]; ok {
			out[f] = v
		}
	}
	return out
}
