package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/elodex/internal/db"
)

// translate renders a query DSL node in the FT.SEARCH query syntax
// (DIALECT 2). Clauses with no equivalent return db.ErrNotSupported.
func translate(node any) (string, error) {
	if node == nil {
		return "*", nil
	}
	kind, body, err := db.Clause(node)
	if err != nil {
		return "", err
	}

	switch kind {
	case "match_all":
		return "*", nil
	case "bool":
		return translateBool(body)
	case "nested":
		return translate(body["query"])
	case "query_string":
		q, _ := body["query"].(string)
		if q == "" {
			return "", fmt.Errorf("query_string: query is required")
		}
		return q, nil
	case "multi_match":
		return translateMultiMatch(body)
	case "terms":
		return translateTerms(body)
	case "range":
		return translateRange(body)
	case "term":
		field, v, _, err := db.FieldValue(body, "value")
		if err != nil {
			return "", err
		}
		return termExpr(field, v)
	case "match":
		field, v, params, err := db.FieldValue(body, "query")
		if err != nil {
			return "", err
		}
		text := fmt.Sprint(v)
		op, _ := params["operator"].(string)
		return fmt.Sprintf("@%s:(%s)", fieldAlias(field), words(text, strings.EqualFold(op, "and"))), nil
	case "prefix":
		field, v, _, err := db.FieldValue(body, "value")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("@%s:%s*", fieldAlias(field), escapeQuery(fmt.Sprint(v))), nil
	case "wildcard":
		field, v, _, err := db.FieldValue(body, "value")
		if err != nil {
			return "", err
		}
		pattern := strings.ReplaceAll(fmt.Sprint(v), "'", `\'`)
		return fmt.Sprintf("@%s:(w'%s')", fieldAlias(field), pattern), nil
	case "fuzzy":
		field, v, _, err := db.FieldValue(body, "value")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("@%s:%%%s%%", fieldAlias(field), escapeQuery(fmt.Sprint(v))), nil
	}

	return "", fmt.Errorf("%w: %s query", db.ErrNotSupported, kind)
}

func translateBool(body map[string]any) (string, error) {
	var parts []string

	for _, occur := range []string{"must", "filter"} {
		for _, c := range db.List(body[occur]) {
			q, err := translate(c)
			if err != nil {
				return "", err
			}
			if q != "*" {
				parts = append(parts, group(q))
			}
		}
	}

	if should := db.List(body["should"]); len(should) > 0 {
		alts := make([]string, 0, len(should))
		for _, c := range should {
			q, err := translate(c)
			if err != nil {
				return "", err
			}
			alts = append(alts, group(q))
		}
		// Should clauses only narrow the result when nothing else is required.
		if len(parts) == 0 {
			parts = append(parts, "("+strings.Join(alts, " | ")+")")
		}
	}

	for _, c := range db.List(body["must_not"]) {
		q, err := translate(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, "-"+group(q))
	}

	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

func translateMultiMatch(body map[string]any) (string, error) {
	text, _ := body["query"].(string)
	if text == "" {
		return "", fmt.Errorf("multi_match: query is required")
	}
	op, _ := body["operator"].(string)
	terms := words(text, strings.EqualFold(op, "and"))

	fields := db.Strings(body["fields"])
	aliases := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "*" || f == "_all" {
			return "(" + terms + ")", nil
		}
		f, _, _ = strings.Cut(f, "^")
		aliases = append(aliases, fieldAlias(f))
	}
	if len(aliases) == 0 {
		return "(" + terms + ")", nil
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(aliases, "|"), terms), nil
}

func translateTerms(body map[string]any) (string, error) {
	var field string
	var values []any
	for name, v := range body {
		if name == "boost" || name == "_name" {
			continue
		}
		field, values = name, db.List(v)
	}
	if field == "" || len(values) == 0 {
		return "", fmt.Errorf("terms: field and values are required")
	}
	alts := make([]string, 0, len(values))
	for _, v := range values {
		q, err := termExpr(field, v)
		if err != nil {
			return "", err
		}
		alts = append(alts, q)
	}
	return "(" + strings.Join(alts, " | ") + ")", nil
}

func translateRange(body map[string]any) (string, error) {
	var field string
	var bounds map[string]any
	for name, v := range body {
		if inner, ok := v.(map[string]any); ok {
			field, bounds = name, inner
		}
	}
	if bounds == nil {
		return "", fmt.Errorf("range: expected {field: {bounds}}")
	}
	var r numericRange
	for key, dst := range map[string]**float64{"gt": &r.gt, "gte": &r.gte, "lt": &r.lt, "lte": &r.lte} {
		v, ok := bounds[key]
		if !ok || v == nil {
			continue
		}
		n, ok := db.Number(v)
		if !ok {
			return "", fmt.Errorf("%w: non-numeric range on %s", db.ErrNotSupported, field)
		}
		*dst = &n
	}
	return buildNumericFilter(fieldAlias(field), r), nil
}

func termExpr(field string, v any) (string, error) {
	alias := fieldAlias(field)
	switch t := v.(type) {
	case bool:
		return fmt.Sprintf("@%s:{%t}", alias, t), nil
	case string:
		return fmt.Sprintf(`@%s:"%s"`, alias, strings.ReplaceAll(t, `"`, `\"`)), nil
	case nil:
		return "", fmt.Errorf("term on %s: value is required", field)
	}
	if n, ok := db.Number(v); ok {
		s := strconv.FormatFloat(n, 'g', -1, 64)
		return fmt.Sprintf("@%s:[%s %s]", alias, s, s), nil
	}
	return "", fmt.Errorf("%w: term value of type %T", db.ErrNotSupported, v)
}

type numericRange struct {
	gt, gte, lt, lte *float64
}

func buildNumericFilter(key string, r numericRange) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.gt != nil {
		minBound = fmt.Sprintf("(%g", *r.gt)
	} else if r.gte != nil {
		minBound = fmt.Sprintf("%g", *r.gte)
	}

	if r.lt != nil {
		maxBound = fmt.Sprintf("(%g", *r.lt)
	} else if r.lte != nil {
		maxBound = fmt.Sprintf("%g", *r.lte)
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// words escapes each word of text and joins them as an intersection
// (all) or union.
func words(text string, all bool) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = escapeQuery(f)
	}
	if all {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields, "|")
}

func group(q string) string {
	if strings.HasPrefix(q, "(") && strings.HasSuffix(q, ")") {
		return q
	}
	return "(" + q + ")"
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`.`, `\.`,
	`,`, `\,`,
)
