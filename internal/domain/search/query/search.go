package query

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/kailas-cloud/elodex/internal/domain"
)

// Occur selects the boolean slot a clause is added to.
type Occur string

// Boolean combination types.
const (
	Must    Occur = "must"
	Should  Occur = "should"
	MustNot Occur = "must_not"
	Filter  Occur = "filter"
)

var occurrences = []Occur{Must, Should, MustNot, Filter}

func (o Occur) apply(opts *clauseOptions) { opts.occur = o }

// Option customizes a clause added through Search. Occur and Params are options.
type Option interface {
	apply(*clauseOptions)
}

type clauseOptions struct {
	occur  Occur
	params Params
}

func resolve(opts []Option) clauseOptions {
	o := clauseOptions{occur: Must}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&o)
		}
	}
	return o
}

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// reserved body sections are owned by the builder and cannot be set through Extend.
var reserved = []string{"query", "sort", "from", "size", "highlight", "suggest", "_source", "min_score"}

// Search accumulates a search request. It is not safe for concurrent mutation.
type Search struct {
	entries    []entry
	sort       []any
	highlights map[string]any
	hlOrder    []string
	preTags    []string
	postTags   []string
	suggest    map[string]any
	size       *int
	from       *int
	minScore   *float64
	scroll     time.Duration
	types      []string
	source     []string
	extensions map[string]any
	forbidden  map[string]bool
	err        error
}

// BuilderOption configures a new Search.
type BuilderOption func(*Search)

// WithForbidden reserves additional extension names.
func WithForbidden(names ...string) BuilderOption {
	return func(s *Search) {
		for _, n := range names {
			s.forbidden[n] = true
		}
	}
}

// New creates an empty Search.
func New(opts ...BuilderOption) *Search {
	s := &Search{forbidden: make(map[string]bool, len(reserved))}
	for _, n := range reserved {
		s.forbidden[n] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Search) add(c Part, occur Occur) *Search {
	s.entries = append(s.entries, entry{occur: occur, part: c})
	return s
}

// Where adds a prebuilt clause.
func (s *Search) Where(c Part, opts ...Option) *Search {
	return s.add(c, resolve(opts).occur)
}

// Term adds an exact value clause.
func (s *Search) Term(field string, value any, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(TermClause(field, value, o.params), o.occur)
}

// Terms adds a clause matching any of values.
func (s *Search) Terms(field string, values []any, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(TermsClause(field, values, o.params), o.occur)
}

// CommonTerms adds a common terms clause.
func (s *Search) CommonTerms(field, text string, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(CommonTermsClause(field, text, o.params), o.occur)
}

// Prefix adds a prefix clause.
func (s *Search) Prefix(field, value string, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(PrefixClause(field, value, o.params), o.occur)
}

// Match adds a full-text match clause.
func (s *Search) Match(field string, text any, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(MatchClause(field, text, o.params), o.occur)
}

// MatchAll adds a clause matching every document.
func (s *Search) MatchAll(opts ...Option) *Search {
	o := resolve(opts)
	return s.add(MatchAllClause(o.params), o.occur)
}

// MultiMatch adds a match across several fields.
func (s *Search) MultiMatch(fields []string, text string, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(MultiMatchClause(fields, text, o.params), o.occur)
}

// Regexp adds a regular expression clause.
func (s *Search) Regexp(field, pattern string, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(RegexpClause(field, pattern, o.params), o.occur)
}

// Wildcard adds a wildcard clause.
func (s *Search) Wildcard(field, pattern string, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(WildcardClause(field, pattern, o.params), o.occur)
}

// Fuzzy adds a fuzzy clause.
func (s *Search) Fuzzy(field string, value any, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(FuzzyClause(field, value, o.params), o.occur)
}

// QueryString adds a query string clause.
func (s *Search) QueryString(text string, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(QueryStringClause(text, o.params), o.occur)
}

// Nested adds a clause evaluated against nested documents under path.
func (s *Search) Nested(path string, inner Part, opts ...Option) *Search {
	o := resolve(opts)
	return s.add(NestedClause(path, inner, o.params), o.occur)
}

// Range adds a range clause. Invalid bounds are reported by Err.
func (s *Search) Range(field string, b Bounds, opts ...Option) *Search {
	if err := b.Validate(); err != nil {
		s.fail(fmt.Errorf("range on %q: %w", field, err))
		return s
	}
	o := resolve(opts)
	return s.add(RangeClause(field, b, o.params), o.occur)
}

// Sort appends a sort on field.
func (s *Search) Sort(field string, order Order, params ...Params) *Search {
	spec := map[string]any{}
	for _, p := range params {
		maps.Copy(spec, p)
	}
	if order != "" {
		spec["order"] = string(order)
	}
	s.sort = append(s.sort, map[string]any{field: spec})
	return s
}

// Highlight requests highlighted fragments for field.
func (s *Search) Highlight(field string, params ...Params) *Search {
	if s.highlights == nil {
		s.highlights = make(map[string]any)
	}
	spec := map[string]any{}
	for _, p := range params {
		maps.Copy(spec, p)
	}
	if _, ok := s.highlights[field]; !ok {
		s.hlOrder = append(s.hlOrder, field)
	}
	s.highlights[field] = spec
	return s
}

// HighlightTags sets the markup wrapped around highlighted terms.
func (s *Search) HighlightTags(pre, post []string) *Search {
	s.preTags = slices.Clone(pre)
	s.postTags = slices.Clone(post)
	return s
}

// SuggestTerm adds a named term suggestion for text on field.
func (s *Search) SuggestTerm(name, text, field string, params ...Params) *Search {
	if s.suggest == nil {
		s.suggest = make(map[string]any)
	}
	term := map[string]any{}
	for _, p := range params {
		maps.Copy(term, p)
	}
	term["field"] = field
	s.suggest[name] = map[string]any{"text": text, "term": term}
	return s
}

// Limit sets the page size.
func (s *Search) Limit(n int) *Search {
	if n < 0 {
		s.fail(fmt.Errorf("limit must not be negative, got %d", n))
		return s
	}
	s.size = &n
	return s
}

// Take is an alias of Limit.
func (s *Search) Take(n int) *Search { return s.Limit(n) }

// Offset sets the number of hits to skip.
func (s *Search) Offset(n int) *Search {
	if n < 0 {
		s.fail(fmt.Errorf("offset must not be negative, got %d", n))
		return s
	}
	s.from = &n
	return s
}

// Scroll sets the server-side cursor keep-alive.
func (s *Search) Scroll(d time.Duration) *Search {
	s.scroll = d
	return s
}

// Types restricts the search to the given document types.
func (s *Search) Types(types ...string) *Search {
	s.types = append(s.types, types...)
	return s
}

// Source restricts the returned source fields.
func (s *Search) Source(fields ...string) *Search {
	s.source = append(s.source, fields...)
	return s
}

// MinScore drops hits scoring below score.
func (s *Search) MinScore(score float64) *Search {
	s.minScore = &score
	return s
}

// Extend sets a top-level body section the builder does not model, such as
// aggregations or post_filter. Reserved names are rejected.
func (s *Search) Extend(name string, p Part) error {
	if name == "" || s.forbidden[name] {
		return fmt.Errorf("%w: %q", domain.ErrForbiddenExtension, name)
	}
	if p == nil {
		return fmt.Errorf("%w: extension %q has no body", domain.ErrValidation, name)
	}
	if s.extensions == nil {
		s.extensions = make(map[string]any)
	}
	s.extensions[name] = p.Source()
	return nil
}

func (s *Search) fail(err error) {
	if s.err == nil {
		s.err = fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
}

// Err returns the first invalid argument recorded while building.
func (s *Search) Err() error { return s.err }

// Size returns the page size if set.
func (s *Search) Size() (int, bool) {
	if s.size == nil {
		return 0, false
	}
	return *s.size, true
}

// From returns the offset if set.
func (s *Search) From() (int, bool) {
	if s.from == nil {
		return 0, false
	}
	return *s.from, true
}

// ScrollDuration returns the cursor keep-alive, zero when unset.
func (s *Search) ScrollDuration() time.Duration { return s.scroll }

// DocTypes returns the document type filter.
func (s *Search) DocTypes() []string { return slices.Clone(s.types) }

// HasQuery reports whether any clause was added.
func (s *Search) HasQuery() bool { return len(s.entries) > 0 }

// Clauses returns the parts added under occur, in insertion order.
func (s *Search) Clauses(occur Occur) []Part {
	var parts []Part
	for _, e := range s.entries {
		if e.occur == occur {
			parts = append(parts, e.part)
		}
	}
	return parts
}

// Body renders the request body.
func (s *Search) Body() map[string]any {
	body := make(map[string]any, len(s.extensions)+8)
	maps.Copy(body, s.extensions)

	if len(s.entries) > 0 {
		body["query"] = map[string]any{"bool": renderBool(s.entries, nil)}
	}
	if len(s.sort) > 0 {
		body["sort"] = slices.Clone(s.sort)
	}
	if s.size != nil {
		body["size"] = *s.size
	}
	if s.from != nil {
		body["from"] = *s.from
	}
	if len(s.highlights) > 0 {
		hl := map[string]any{"fields": maps.Clone(s.highlights)}
		if len(s.preTags) > 0 {
			hl["pre_tags"] = s.preTags
		}
		if len(s.postTags) > 0 {
			hl["post_tags"] = s.postTags
		}
		body["highlight"] = hl
	}
	if len(s.suggest) > 0 {
		body["suggest"] = maps.Clone(s.suggest)
	}
	if len(s.source) > 0 {
		body["_source"] = slices.Clone(s.source)
	}
	if s.minScore != nil {
		body["min_score"] = *s.minScore
	}
	return body
}

// HighlightFields returns the highlighted fields in the order they were added.
func (s *Search) HighlightFields() []string { return slices.Clone(s.hlOrder) }
