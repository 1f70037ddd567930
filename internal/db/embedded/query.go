package embedded

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/elodex/internal/db"
)

// translator turns query DSL into bleve queries. types scopes ids queries.
type translator struct {
	types []string
}

// scoped wraps q with a filter on the given document types.
func scoped(q query.Query, types []string) query.Query {
	if len(types) == 0 {
		return q
	}
	filters := make([]query.Query, len(types))
	for i, t := range types {
		tq := query.NewTermQuery(t)
		tq.SetField(typeField)
		filters[i] = tq
	}
	typeFilter := query.Query(query.NewDisjunctionQuery(filters))
	if len(filters) == 1 {
		typeFilter = filters[0]
	}
	return query.NewConjunctionQuery([]query.Query{q, typeFilter})
}

func (tr translator) translate(node any) (query.Query, error) {
	if node == nil {
		return query.NewMatchAllQuery(), nil
	}
	kind, body, err := db.Clause(node)
	if err != nil {
		return nil, err
	}

	var q query.Query
	switch kind {
	case "match_all":
		q = query.NewMatchAllQuery()
	case "match_none":
		q = query.NewMatchNoneQuery()
	case "bool":
		return tr.translateBool(body)
	case "nested":
		return tr.translate(body["query"])
	case "constant_score":
		q, err = tr.translate(body["filter"])
	case "dis_max":
		q, err = tr.disjunction(body["queries"])
	case "ids":
		q = tr.translateIDs(body)
	case "query_string", "simple_query_string":
		qs, _ := body["query"].(string)
		q = query.NewQueryStringQuery(qs)
	case "multi_match":
		q, err = translateMultiMatch(body)
	case "match", "common":
		q, err = translateMatch(body, false)
	case "match_phrase":
		q, err = translateMatch(body, true)
	case "term":
		q, err = translateTerm(body)
	case "terms":
		q, err = translateTerms(body)
	case "range":
		q, err = translateRange(body)
	case "prefix":
		q, err = translateText(body, func(s string) query.FieldableQuery { return query.NewPrefixQuery(s) })
	case "wildcard":
		q, err = translateText(body, func(s string) query.FieldableQuery { return query.NewWildcardQuery(s) })
	case "regexp":
		q, err = translateText(body, func(s string) query.FieldableQuery { return query.NewRegexpQuery(s) })
	case "fuzzy":
		q, err = translateFuzzy(body)
	default:
		return nil, fmt.Errorf("%w: %s query", db.ErrNotSupported, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if b, ok := db.Number(body["boost"]); ok {
		if bq, ok := q.(query.BoostableQuery); ok {
			bq.SetBoost(b)
		}
	}
	return q, nil
}

// translateBool maps must and filter to required clauses. Without required
// clauses at least one should clause has to match.
func (tr translator) translateBool(body map[string]any) (query.Query, error) {
	bq := query.NewBooleanQuery(nil, nil, nil)
	musts := 0
	for _, key := range []string{"must", "filter"} {
		for _, c := range db.List(body[key]) {
			q, err := tr.translate(c)
			if err != nil {
				return nil, fmt.Errorf("bool.%s: %w", key, err)
			}
			bq.AddMust(q)
			musts++
		}
	}
	shoulds := 0
	for _, c := range db.List(body["should"]) {
		q, err := tr.translate(c)
		if err != nil {
			return nil, fmt.Errorf("bool.should: %w", err)
		}
		bq.AddShould(q)
		shoulds++
	}
	for _, c := range db.List(body["must_not"]) {
		q, err := tr.translate(c)
		if err != nil {
			return nil, fmt.Errorf("bool.must_not: %w", err)
		}
		bq.AddMustNot(q)
	}

	if shoulds > 0 {
		switch n, ok := db.Number(body["minimum_should_match"]); {
		case ok:
			bq.SetMinShould(n)
		case musts == 0:
			bq.SetMinShould(1)
		}
	}
	if musts == 0 && shoulds == 0 && len(db.List(body["must_not"])) == 0 {
		return query.NewMatchAllQuery(), nil
	}
	if b, ok := db.Number(body["boost"]); ok {
		bq.SetBoost(b)
	}
	return bq, nil
}

func (tr translator) disjunction(v any) (query.Query, error) {
	items := db.List(v)
	qs := make([]query.Query, 0, len(items))
	for _, c := range items {
		q, err := tr.translate(c)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return query.NewDisjunctionQuery(qs), nil
}

func (tr translator) translateIDs(body map[string]any) query.Query {
	types := tr.types
	if t, ok := body["type"].(string); ok {
		types = []string{t}
	}
	var ids []string
	for _, id := range db.Strings(body["values"]) {
		for _, t := range types {
			ids = append(ids, docID(t, id))
		}
	}
	return query.NewDocIDQuery(ids)
}

// translateMultiMatch searches the composite field for "*" or no fields and
// otherwise ORs one match per field. A "^n" suffix boosts the field.
func translateMultiMatch(body map[string]any) (query.Query, error) {
	text := fmt.Sprint(body["query"])
	phrase := body["type"] == "phrase"
	and := strings.EqualFold(fmt.Sprint(body["operator"]), "and")

	fields := db.Strings(body["fields"])
	if len(fields) == 0 || (len(fields) == 1 && (fields[0] == "*" || fields[0] == "_all")) {
		return matchQuery("", text, phrase, and), nil
	}

	qs := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		name, boost, hasBoost := strings.Cut(f, "^")
		q := matchQuery(name, text, phrase, and)
		if hasBoost {
			b, err := strconv.ParseFloat(boost, 64)
			if err != nil {
				return nil, fmt.Errorf("field %s: bad boost %q", name, boost)
			}
			q.(query.BoostableQuery).SetBoost(b)
		}
		qs = append(qs, q)
	}
	return query.NewDisjunctionQuery(qs), nil
}

func matchQuery(field, text string, phrase, and bool) query.Query {
	if phrase {
		q := query.NewMatchPhraseQuery(text)
		if field != "" {
			q.SetField(field)
		}
		return q
	}
	q := query.NewMatchQuery(text)
	if field != "" {
		q.SetField(field)
	}
	if and {
		q.SetOperator(query.MatchQueryOperatorAnd)
	}
	return q
}

func translateMatch(body map[string]any, phrase bool) (query.Query, error) {
	field, v, params, err := db.FieldValue(body, "query")
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case bool:
		return boolQuery(field, val), nil
	case string:
	default:
		if n, ok := db.Number(v); ok {
			return numericTerm(field, n), nil
		}
		return nil, fmt.Errorf("%s: unsupported value %T", field, v)
	}
	and := strings.EqualFold(fmt.Sprint(params["operator"]), "and")
	q := matchQuery(field, v.(string), phrase, and)
	if mq, ok := q.(*query.MatchQuery); ok {
		switch fz := params["fuzziness"].(type) {
		case nil:
		case string:
			if strings.EqualFold(fz, "auto") {
				mq.SetFuzziness(1)
			} else {
				mq.SetFuzziness(db.Int(fz, 0))
			}
		default:
			mq.SetFuzziness(db.Int(fz, 0))
		}
	}
	return q, nil
}

func translateTerm(body map[string]any) (query.Query, error) {
	field, v, _, err := db.FieldValue(body, "value")
	if err != nil {
		return nil, err
	}
	return termQuery(field, v)
}

func termQuery(field string, v any) (query.Query, error) {
	switch val := v.(type) {
	case bool:
		return boolQuery(field, val), nil
	case string:
		q := query.NewTermQuery(val)
		q.SetField(field)
		return q, nil
	}
	if n, ok := db.Number(v); ok {
		return numericTerm(field, n), nil
	}
	return nil, fmt.Errorf("%s: unsupported value %T", field, v)
}

func translateTerms(body map[string]any) (query.Query, error) {
	var field string
	var values []any
	for name, v := range body {
		if name == "boost" || name == "_name" {
			continue
		}
		field, values = name, db.List(v)
	}
	if field == "" {
		return nil, fmt.Errorf("clause has no field")
	}
	qs := make([]query.Query, 0, len(values))
	for _, v := range values {
		q, err := termQuery(field, v)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return query.NewDisjunctionQuery(qs), nil
}

func boolQuery(field string, v bool) query.Query {
	q := query.NewBoolFieldQuery(v)
	q.SetField(field)
	return q
}

func numericTerm(field string, n float64) query.Query {
	inclusive := true
	q := query.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

// translateRange builds a numeric, date or term range depending on the
// bounds given.
func translateRange(body map[string]any) (query.Query, error) {
	var field string
	var bounds map[string]any
	for name, v := range body {
		if name == "boost" || name == "_name" {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: bounds must be an object", name)
		}
		field, bounds = name, m
	}
	if field == "" {
		return nil, fmt.Errorf("clause has no field")
	}

	lo, loInc := bound(bounds, "gte", "gt")
	hi, hiInc := bound(bounds, "lte", "lt")

	if q, ok := numericRange(lo, hi, loInc, hiInc); ok {
		q.SetField(field)
		return q, nil
	}
	if q, ok := dateRange(lo, hi, loInc, hiInc); ok {
		q.SetField(field)
		return q, nil
	}
	loS, _ := lo.(string)
	hiS, _ := hi.(string)
	q := query.NewTermRangeInclusiveQuery(loS, hiS, &loInc, &hiInc)
	q.SetField(field)
	return q, nil
}

func bound(m map[string]any, inclusive, exclusive string) (any, bool) {
	if v, ok := m[inclusive]; ok {
		return v, true
	}
	if v, ok := m[exclusive]; ok {
		return v, false
	}
	return nil, false
}

func numericRange(lo, hi any, loInc, hiInc bool) (*query.NumericRangeQuery, bool) {
	var from, to *float64
	for _, b := range []struct {
		v   any
		dst **float64
	}{{lo, &from}, {hi, &to}} {
		if b.v == nil {
			continue
		}
		if _, isStr := b.v.(string); isStr {
			return nil, false
		}
		n, ok := db.Number(b.v)
		if !ok {
			return nil, false
		}
		*b.dst = &n
	}
	if from == nil && to == nil {
		return nil, false
	}
	return query.NewNumericRangeInclusiveQuery(from, to, &loInc, &hiInc), true
}

func dateRange(lo, hi any, loInc, hiInc bool) (*query.DateRangeQuery, bool) {
	var start, end time.Time
	for _, b := range []struct {
		v   any
		dst *time.Time
	}{{lo, &start}, {hi, &end}} {
		if b.v == nil {
			continue
		}
		s, ok := b.v.(string)
		if !ok {
			return nil, false
		}
		tm, ok := parseDate(s)
		if !ok {
			return nil, false
		}
		*b.dst = tm
	}
	if start.IsZero() && end.IsZero() {
		return nil, false
	}
	return query.NewDateRangeInclusiveQuery(start, end, &loInc, &hiInc), true
}

func parseDate(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if tm, err := time.Parse(l.(string), s); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

func translateText(body map[string]any, build func(string) query.FieldableQuery) (query.Query, error) {
	field, v, _, err := db.FieldValue(body, "value")
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%s: value must be a string", field)
	}
	q := build(s)
	q.SetField(field)
	return q, nil
}

func translateFuzzy(body map[string]any) (query.Query, error) {
	field, v, params, err := db.FieldValue(body, "value")
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%s: value must be a string", field)
	}
	q := query.NewFuzzyQuery(s)
	q.SetField(field)
	q.SetFuzziness(1)
	if n, ok := db.Number(params["fuzziness"]); ok {
		q.SetFuzziness(int(n))
	}
	if n, ok := db.Number(params["prefix_length"]); ok {
		q.SetPrefix(int(n))
	}
	return q, nil
}
