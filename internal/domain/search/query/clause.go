// Package query builds structured search requests for the index backends.
package query

import (
	"errors"
	"maps"
)

// Part is anything that renders into a section of the request body.
type Part interface {
	Source() any
}

// Raw is a prebuilt body fragment passed through unchanged.
type Raw map[string]any

// Source returns the fragment itself.
func (r Raw) Source() any { return map[string]any(r) }

// Clause is a single leaf query such as term or match.
type Clause struct {
	kind string
	body map[string]any
}

// Kind returns the clause name, e.g. "term".
func (c Clause) Kind() string { return c.kind }

// Source renders {kind: body}.
func (c Clause) Source() any {
	return map[string]any{c.kind: c.body}
}

// Params are optional clause settings such as boost or fuzziness.
type Params map[string]any

func (p Params) apply(o *clauseOptions) {
	if len(p) == 0 {
		return
	}
	if o.params == nil {
		o.params = make(Params, len(p))
	}
	maps.Copy(o.params, p)
}

// fieldValue renders {field: value} when there are no params and
// {field: {key: value, ...params}} otherwise.
func fieldValue(field, key string, value any, p Params) map[string]any {
	if len(p) == 0 {
		return map[string]any{field: value}
	}
	inner := make(map[string]any, len(p)+1)
	maps.Copy(inner, p)
	inner[key] = value
	return map[string]any{field: inner}
}

func withParams(base map[string]any, p Params) map[string]any {
	maps.Copy(base, p)
	return base
}

// TermClause matches an exact value.
func TermClause(field string, value any, p Params) Clause {
	return Clause{kind: "term", body: fieldValue(field, "value", value, p)}
}

// TermsClause matches any of the exact values.
func TermsClause(field string, values []any, p Params) Clause {
	return Clause{kind: "terms", body: withParams(map[string]any{field: values}, p)}
}

// CommonTermsClause runs a common terms query.
func CommonTermsClause(field, text string, p Params) Clause {
	inner := withParams(map[string]any{"query": text}, p)
	return Clause{kind: "common", body: map[string]any{field: inner}}
}

// PrefixClause matches terms starting with value.
func PrefixClause(field, value string, p Params) Clause {
	return Clause{kind: "prefix", body: fieldValue(field, "value", value, p)}
}

// MatchClause runs an analyzed full-text match.
func MatchClause(field string, text any, p Params) Clause {
	return Clause{kind: "match", body: fieldValue(field, "query", text, p)}
}

// MatchAllClause matches every document.
func MatchAllClause(p Params) Clause {
	return Clause{kind: "match_all", body: withParams(map[string]any{}, p)}
}

// MultiMatchClause runs a match across several fields.
func MultiMatchClause(fields []string, text string, p Params) Clause {
	return Clause{kind: "multi_match", body: withParams(map[string]any{
		"query":  text,
		"fields": fields,
	}, p)}
}

// RegexpClause matches terms against a regular expression.
func RegexpClause(field, pattern string, p Params) Clause {
	return Clause{kind: "regexp", body: fieldValue(field, "value", pattern, p)}
}

// WildcardClause matches terms against a wildcard pattern.
func WildcardClause(field, pattern string, p Params) Clause {
	return Clause{kind: "wildcard", body: fieldValue(field, "value", pattern, p)}
}

// FuzzyClause matches terms within an edit distance.
func FuzzyClause(field string, value any, p Params) Clause {
	return Clause{kind: "fuzzy", body: fieldValue(field, "value", value, p)}
}

// QueryStringClause runs a query in the engine's query string syntax.
func QueryStringClause(text string, p Params) Clause {
	return Clause{kind: "query_string", body: withParams(map[string]any{"query": text}, p)}
}

// NestedClause runs inner against the nested documents under path.
func NestedClause(path string, inner Part, p Params) Clause {
	return Clause{kind: "nested", body: withParams(map[string]any{
		"path":  path,
		"query": inner.Source(),
	}, p)}
}

// Bounds is a range with optional exclusive or inclusive ends. Values may
// be numbers or date strings.
type Bounds struct {
	GT  any
	GTE any
	LT  any
	LTE any
}

// Validate requires at least one end and forbids both forms on the same side.
func (b Bounds) Validate() error {
	if b.GT == nil && b.GTE == nil && b.LT == nil && b.LTE == nil {
		return errors.New("at least one range boundary is required")
	}
	if b.GT != nil && b.GTE != nil {
		return errors.New("cannot specify both gt and gte")
	}
	if b.LT != nil && b.LTE != nil {
		return errors.New("cannot specify both lt and lte")
	}
	return nil
}

// RangeClause restricts field to the given bounds.
func RangeClause(field string, b Bounds, p Params) Clause {
	inner := make(map[string]any, len(p)+2)
	maps.Copy(inner, p)
	for key, v := range map[string]any{"gt": b.GT, "gte": b.GTE, "lt": b.LT, "lte": b.LTE} {
		if v != nil {
			inner[key] = v
		}
	}
	return Clause{kind: "range", body: map[string]any{field: inner}}
}

// Bool is a compound clause for use inside Nested or as a raw clause.
type Bool struct {
	entries []entry
	params  Params
}

type entry struct {
	occur Occur
	part  Part
}

// NewBool creates an empty compound clause.
func NewBool(p Params) *Bool {
	return &Bool{params: p}
}

// Add appends part under the given occurrence.
func (b *Bool) Add(part Part, occur Occur) *Bool {
	b.entries = append(b.entries, entry{occur: occur, part: part})
	return b
}

// Len returns the number of clauses.
func (b *Bool) Len() int { return len(b.entries) }

// Source renders {"bool": {...}}.
func (b *Bool) Source() any {
	return map[string]any{"bool": renderBool(b.entries, b.params)}
}

func renderBool(entries []entry, p Params) map[string]any {
	out := make(map[string]any, len(p)+4)
	maps.Copy(out, p)
	for _, occur := range occurrences {
		var parts []any
		for _, e := range entries {
			if e.occur == occur {
				parts = append(parts, e.part.Source())
			}
		}
		if len(parts) > 0 {
			out[string(occur)] = parts
		}
	}
	return out
}
