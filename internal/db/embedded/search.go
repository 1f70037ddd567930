package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/kailas-cloud/elodex/internal/db"
)

const (
	defaultSize        = 10
	defaultSuggestSize = 5
	maxEdits           = 2
	markOpen           = "<mark>"
	markClose          = "</mark>"
)

// plan is a decoded search body.
type plan struct {
	query     query.Query
	from      int
	size      int
	sort      []string
	source    []string
	noSource  bool
	minScore  *float64
	version   bool
	highlight *highlightSpec
	aggs      []aggSpec
	suggest   []suggestSpec
}

type highlightSpec struct {
	fields    []string
	pre, post string
}

type aggSpec struct {
	name  string
	field string
	size  int
}

type suggestSpec struct {
	name         string
	text         string
	field        string
	size         int
	mode         string
	prefixLength int
	minWordLen   int
}

func planSearch(body map[string]any, types []string, version bool) (*plan, error) {
	q, err := translator{types: types}.translate(body["query"])
	if err != nil {
		return nil, err
	}
	p := &plan{
		query:   scoped(q, types),
		from:    db.Int(body["from"], 0),
		size:    db.Int(body["size"], defaultSize),
		version: version,
	}
	switch src := body["_source"].(type) {
	case bool:
		p.noSource = !src
	default:
		p.source = db.Strings(src)
	}
	for _, s := range db.Sorts(body["sort"]) {
		field := s.Field
		if s.Desc {
			field = "-" + field
		}
		p.sort = append(p.sort, field)
	}
	if v, ok := db.Number(body["min_score"]); ok {
		p.minScore = &v
	}
	if p.highlight, err = parseHighlight(body["highlight"]); err != nil {
		return nil, err
	}
	aggs := body["aggs"]
	if aggs == nil {
		aggs = body["aggregations"]
	}
	if p.aggs, err = parseAggs(aggs); err != nil {
		return nil, err
	}
	if p.suggest, err = parseSuggest(body["suggest"]); err != nil {
		return nil, err
	}
	return p, nil
}

func parseHighlight(v any) (*highlightSpec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	h := &highlightSpec{pre: "<em>", post: "</em>"}
	if tags := db.Strings(m["pre_tags"]); len(tags) > 0 {
		h.pre = tags[0]
	}
	if tags := db.Strings(m["post_tags"]); len(tags) > 0 {
		h.post = tags[0]
	}
	switch fields := m["fields"].(type) {
	case map[string]any:
		for f := range fields {
			h.fields = append(h.fields, f)
		}
	case []any:
		for _, item := range fields {
			fm, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("highlight: field entry must be an object")
			}
			for f := range fm {
				h.fields = append(h.fields, f)
			}
		}
	}
	sort.Strings(h.fields)
	return h, nil
}

// render swaps bleve's marks for the requested tags.
func (h *highlightSpec) render(fragments search.FieldFragmentMap) map[string][]string {
	out := make(map[string][]string, len(fragments))
	for field, frags := range fragments {
		rendered := make([]string, len(frags))
		for i, f := range frags {
			f = strings.ReplaceAll(f, markOpen, h.pre)
			rendered[i] = strings.ReplaceAll(f, markClose, h.post)
		}
		out[field] = rendered
	}
	return out
}

// parseAggs accepts terms aggregations only.
func parseAggs(v any) ([]aggSpec, error) {
	m, _ := v.(map[string]any)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]aggSpec, 0, len(names))
	for _, name := range names {
		kind, body, err := db.Clause(m[name])
		if err != nil {
			return nil, fmt.Errorf("aggregation %s: %w", name, err)
		}
		if kind != "terms" {
			return nil, fmt.Errorf("%w: %s aggregation", db.ErrNotSupported, kind)
		}
		field, _ := body["field"].(string)
		if field == "" {
			return nil, fmt.Errorf("aggregation %s: field is required", name)
		}
		out = append(out, aggSpec{name: name, field: field, size: db.Int(body["size"], defaultSize)})
	}
	return out, nil
}

// parseSuggest accepts term suggesters. A top-level "text" applies to
// entries without their own.
func parseSuggest(v any) ([]suggestSpec, error) {
	m, _ := v.(map[string]any)
	global, _ := m["text"].(string)

	names := make([]string, 0, len(m))
	for name := range m {
		if name != "text" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]suggestSpec, 0, len(names))
	for _, name := range names {
		def, ok := m[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("suggest %s: expected object", name)
		}
		term, ok := def["term"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: suggester %s is not a term suggester", db.ErrNotSupported, name)
		}
		text, _ := def["text"].(string)
		if text == "" {
			text = global
		}
		field, _ := term["field"].(string)
		if field == "" {
			return nil, fmt.Errorf("suggest %s: field is required", name)
		}
		mode, _ := term["suggest_mode"].(string)
		if mode == "" {
			mode = "missing"
		}
		out = append(out, suggestSpec{
			name:         name,
			text:         text,
			field:        field,
			size:         db.Int(term["size"], defaultSuggestSize),
			mode:         mode,
			prefixLength: db.Int(term["prefix_length"], 1),
			minWordLen:   db.Int(term["min_word_length"], 4),
		})
	}
	return out, nil
}

// Search runs a search. A positive Scroll opens a cursor over the results.
func (t *Transport) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error) {
	p, err := planSearch(req.Body, req.Types, req.Version)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	var resp *db.SearchResponse
	err = t.readStore(req.Index, func(s *store) error {
		var err error
		resp, err = s.run(ctx, p, p.from)
		return err
	})
	if err != nil {
		return nil, opErr(db.OpSearch, err)
	}

	if req.Scroll > 0 {
		resp.ScrollID = t.openCursor(req.Index, p, req.Scroll)
	}
	return resp, nil
}

// Count counts documents matching the body's query, or all documents of
// the requested types.
func (t *Transport) Count(ctx context.Context, req *db.CountRequest) (*db.CountResponse, error) {
	q, err := translator{types: req.Types}.translate(req.Body["query"])
	if err != nil {
		return nil, &db.Error{Op: db.OpCount, Err: err}
	}
	var n uint64
	err = t.readStore(req.Index, func(s *store) error {
		sreq := bleve.NewSearchRequestOptions(scoped(q, req.Types), 0, 0, false)
		res, err := s.idx.SearchInContext(ctx, sreq)
		if err != nil {
			return err
		}
		n = res.Total
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpCount, err)
	}
	return &db.CountResponse{Count: int64(n)}, nil
}

// run executes p against s starting at from.
func (s *store) run(ctx context.Context, p *plan, from int) (*db.SearchResponse, error) {
	start, size := from, p.size
	if p.minScore != nil {
		// Bleve has no score cutoff, so fetch every match and page after filtering.
		n, err := s.idx.DocCount()
		if err != nil {
			return nil, err
		}
		start, size = 0, int(n)
	}
	sreq := bleve.NewSearchRequestOptions(p.query, size, start, false)
	if len(p.sort) > 0 {
		sreq.SortBy(p.sort)
	}
	if p.highlight != nil {
		sreq.Highlight = bleve.NewHighlightWithStyle(html.Name)
		for _, f := range p.highlight.fields {
			sreq.Highlight.AddField(f)
		}
	}
	for _, a := range p.aggs {
		sreq.AddFacet(a.name, bleve.NewFacetRequest(a.field, a.size))
	}

	res, err := s.idx.SearchInContext(ctx, sreq)
	if err != nil {
		return nil, err
	}

	matches, total := res.Hits, int64(res.Total)
	if p.minScore != nil {
		matches, total = aboveScore(res.Hits, *p.minScore, from, p.size)
	}

	resp := &db.SearchResponse{
		Took:   int(res.Took.Milliseconds()),
		Shards: db.Shards{Total: 1, Successful: 1},
		Hits: db.Hits{
			Total: db.Total{Value: total, Relation: "eq"},
			Hits:  make([]db.Hit, 0, len(matches)),
		},
	}
	if total > 0 {
		maxScore := res.MaxScore
		resp.Hits.MaxScore = &maxScore
	}

	for _, h := range matches {
		env, err := s.load(h.ID)
		if err != nil {
			return nil, err
		}
		if env == nil {
			continue
		}
		docType, id := splitDocID(h.ID)
		score := h.Score
		hit := db.Hit{Index: s.name, Type: docType, ID: id, Score: &score}
		if !p.noSource {
			hit.Source = db.FilterSource(env.Source, p.source)
		}
		if p.version {
			v := env.Version
			hit.Version = &v
		}
		if p.highlight != nil && len(h.Fragments) > 0 {
			hit.Highlight = p.highlight.render(h.Fragments)
		}
		resp.Hits.Hits = append(resp.Hits.Hits, hit)
	}

	if len(p.aggs) > 0 {
		if resp.Aggregations, err = termsAggregations(res, p.aggs); err != nil {
			return nil, err
		}
	}
	if len(p.suggest) > 0 {
		resp.Suggest = make(map[string][]db.Suggestion, len(p.suggest))
		for _, spec := range p.suggest {
			sugg, err := s.suggestTerms(spec)
			if err != nil {
				return nil, fmt.Errorf("suggest %s: %w", spec.name, err)
			}
			resp.Suggest[spec.name] = sugg
		}
	}
	return resp, nil
}

// aboveScore keeps the hits scoring at least floor and returns the page
// [from, from+size) of them with the number kept.
func aboveScore(hits search.DocumentMatchCollection, floor float64, from, size int) (search.DocumentMatchCollection, int64) {
	kept := make(search.DocumentMatchCollection, 0, len(hits))
	for _, h := range hits {
		if h.Score >= floor {
			kept = append(kept, h)
		}
	}
	total := int64(len(kept))
	if from >= len(kept) {
		return nil, total
	}
	return kept[from:min(from+size, len(kept))], total
}

type termsBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

type termsAggregation struct {
	DocCountErrorUpperBound int           `json:"doc_count_error_upper_bound"`
	SumOtherDocCount        int           `json:"sum_other_doc_count"`
	Buckets                 []termsBucket `json:"buckets"`
}

func termsAggregations(res *bleve.SearchResult, aggs []aggSpec) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(aggs))
	for _, a := range aggs {
		agg := termsAggregation{Buckets: []termsBucket{}}
		if fr := res.Facets[a.name]; fr != nil {
			agg.SumOtherDocCount = fr.Other
			if fr.Terms != nil {
				for _, term := range fr.Terms.Terms() {
					agg.Buckets = append(agg.Buckets, termsBucket{Key: term.Term, DocCount: term.Count})
				}
			}
		}
		raw, err := json.Marshal(agg)
		if err != nil {
			return nil, fmt.Errorf("encode aggregation %s: %w", a.name, err)
		}
		out[a.name] = raw
	}
	return out, nil
}

type dictTerm struct {
	term string
	freq int
}

// suggestTerms proposes dictionary terms of spec.field within maxEdits of
// each analyzed token of spec.text.
func (s *store) suggestTerms(spec suggestSpec) ([]db.Suggestion, error) {
	m := s.idx.Mapping()
	a := m.AnalyzerNamed(m.AnalyzerNameForPath(spec.field))
	if a == nil {
		return nil, fmt.Errorf("no analyzer for field %s", spec.field)
	}
	dict, err := s.fieldTerms(spec.field)
	if err != nil {
		return nil, err
	}
	freqs := make(map[string]int, len(dict))
	for _, d := range dict {
		freqs[d.term] = d.freq
	}

	tokens := a.Analyze([]byte(spec.text))
	out := make([]db.Suggestion, 0, len(tokens))
	for _, tok := range tokens {
		term := string(tok.Term)
		sugg := db.Suggestion{
			Text:    term,
			Offset:  tok.Start,
			Length:  tok.End - tok.Start,
			Options: []db.SuggestionOption{},
		}
		own, known := freqs[term]
		skip := utf8.RuneCountInString(term) < spec.minWordLen ||
			(spec.mode == "missing" && known)
		if !skip {
			sugg.Options = candidates(term, own, dict, spec)
		}
		out = append(out, sugg)
	}
	return out, nil
}

func candidates(term string, own int, dict []dictTerm, spec suggestSpec) []db.SuggestionOption {
	termLen := utf8.RuneCountInString(term)
	prefix := []rune(term)
	if len(prefix) > spec.prefixLength {
		prefix = prefix[:spec.prefixLength]
	}

	var opts []db.SuggestionOption
	for _, d := range dict {
		if d.term == term || !strings.HasPrefix(d.term, string(prefix)) {
			continue
		}
		if spec.mode == "popular" && d.freq <= own {
			continue
		}
		dist := search.LevenshteinDistance(term, d.term)
		if dist > maxEdits {
			continue
		}
		longest := max(termLen, utf8.RuneCountInString(d.term))
		opts = append(opts, db.SuggestionOption{
			Text:  d.term,
			Score: 1 - float64(dist)/float64(longest),
			Freq:  d.freq,
		})
	}
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Score != opts[j].Score {
			return opts[i].Score > opts[j].Score
		}
		if opts[i].Freq != opts[j].Freq {
			return opts[i].Freq > opts[j].Freq
		}
		return opts[i].Text < opts[j].Text
	})
	if len(opts) > spec.size {
		opts = opts[:spec.size]
	}
	if opts == nil {
		opts = []db.SuggestionOption{}
	}
	return opts
}

func (s *store) fieldTerms(field string) ([]dictTerm, error) {
	fd, err := s.idx.FieldDict(field)
	if err != nil {
		return nil, fmt.Errorf("read terms of %s: %w", field, err)
	}
	defer func() { _ = fd.Close() }()

	var out []dictTerm
	for {
		e, err := fd.Next()
		if err != nil {
			return nil, fmt.Errorf("read terms of %s: %w", field, err)
		}
		if e == nil {
			return out, nil
		}
		out = append(out, dictTerm{term: e.Term, freq: int(e.Count)})
	}
}

// cursor is a scroll position. Pages are computed by re-running the plan
// at the next offset.
type cursor struct {
	index   string
	plan    *plan
	offset  int
	expires time.Time
}

func (t *Transport) openCursor(index string, p *plan, idle time.Duration) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, c := range t.cursors {
		if now.After(c.expires) {
			delete(t.cursors, id)
		}
	}
	id := uuid.NewString()
	if t.cursors != nil {
		t.cursors[id] = &cursor{index: index, plan: p, offset: p.from + p.size, expires: now.Add(idle)}
	}
	return id
}

// Scroll returns the next page of a cursor and extends its lifetime.
func (t *Transport) Scroll(ctx context.Context, req *db.ScrollRequest) (*db.SearchResponse, error) {
	t.mu.Lock()
	c, ok := t.cursors[req.ScrollID]
	now := t.now()
	if ok && now.After(c.expires) {
		delete(t.cursors, req.ScrollID)
		ok = false
	}
	if !ok {
		t.mu.Unlock()
		return nil, &db.Error{Op: db.OpScroll, Err: db.ErrScrollExpired}
	}
	if req.Scroll > 0 {
		c.expires = now.Add(req.Scroll)
	}
	offset := c.offset
	c.offset += c.plan.size
	index, p := c.index, c.plan
	t.mu.Unlock()

	var resp *db.SearchResponse
	err := t.readStore(index, func(s *store) error {
		var err error
		resp, err = s.run(ctx, p, offset)
		return err
	})
	if err != nil {
		return nil, opErr(db.OpScroll, err)
	}
	resp.ScrollID = req.ScrollID
	return resp, nil
}

// ClearScroll drops a cursor. Unknown cursors are not an error.
func (t *Transport) ClearScroll(_ context.Context, scrollID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cursors, scrollID)
	return nil
}
