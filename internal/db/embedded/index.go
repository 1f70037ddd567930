package embedded

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

// CreateIndex creates an index from a {"settings", "mappings"} body.
func (t *Transport) CreateIndex(_ context.Context, name string, body map[string]any) error {
	if !db.IsValidIdentifier(name) {
		return &db.Error{Op: db.OpCreateIndex, Err: fmt.Errorf("invalid index name %q", name)}
	}
	settings, _ := body["settings"].(map[string]any)
	if settings == nil {
		settings = map[string]any{}
	}
	mappings, err := parseMappings(body["mappings"])
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.lookupAny(name); err == nil {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
	} else if errors.Is(err, errTransportClosed) {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	s := &store{name: name, settings: settings, mappings: mappings}
	if err := t.build(s, nil); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	t.indexes[name] = s
	return nil
}

// parseMappings reads {type: {"properties": {...}}}.
func parseMappings(raw any) (map[string]mapping.Properties, error) {
	out := map[string]mapping.Properties{}
	types, _ := raw.(map[string]any)
	for docType, def := range types {
		m, _ := def.(map[string]any)
		src, _ := m["properties"].(map[string]any)
		props, err := mapping.ParseProperties(src)
		if err != nil {
			return nil, fmt.Errorf("mapping of %s: %w", docType, err)
		}
		out[docType] = props
	}
	return out, nil
}

// build (re)creates the bleve index of s from its settings and mappings and
// loads docs into it.
func (t *Transport) build(s *store, docs map[string]*envelope) error {
	im, err := buildIndexMapping(s.settings, s.mappings)
	if err != nil {
		return err
	}
	if err := im.Validate(); err != nil {
		return badRequest("mapper_parsing_exception", err.Error())
	}

	var idx bleve.Index
	if p := t.path(s.name); p != "" {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove index dir: %w", err)
		}
		idx, err = bleve.New(p, im)
	} else {
		idx, err = bleve.NewMemOnly(im)
	}
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.name, err)
	}
	s.idx = idx

	if len(docs) > 0 {
		batch := idx.NewBatch()
		for id, env := range docs {
			if err := stage(batch, id, env); err != nil {
				return err
			}
		}
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
	}
	return s.saveMeta()
}

// rebuild recreates the index of s under a new mapping, keeping its documents.
func (t *Transport) rebuild(s *store) error {
	docs, err := s.allDocs()
	if err != nil {
		return err
	}
	if err := s.idx.Close(); err != nil {
		return fmt.Errorf("close index %s: %w", s.name, err)
	}
	return t.build(s, docs)
}

// DeleteIndex drops an index, its documents and its open cursors.
func (t *Transport) DeleteIndex(_ context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookupAny(name)
	if err != nil {
		return &db.Error{Op: db.OpDeleteIndex, Err: err}
	}
	_ = s.idx.Close()
	delete(t.indexes, name)
	for id, c := range t.cursors {
		if c.index == name {
			delete(t.cursors, id)
		}
	}
	if p := t.path(name); p != "" {
		if err := os.RemoveAll(p); err != nil {
			return &db.Error{Op: db.OpDeleteIndex, Err: fmt.Errorf("remove index dir: %w", err)}
		}
	}
	return nil
}

// IndexExists reports whether every named index exists, open or closed.
func (t *Transport) IndexExists(_ context.Context, names ...string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range names {
		if _, err := t.lookupAny(n); err != nil {
			if errors.Is(err, errTransportClosed) {
				return false, &db.Error{Op: db.OpIndexExists, Err: err}
			}
			return false, nil
		}
	}
	return true, nil
}

// PutMapping merges props into the mapping of docType and reindexes. A
// field may not change its type.
func (t *Transport) PutMapping(_ context.Context, index, docType string, props mapping.Properties) error {
	err := t.writeStore(index, func(s *store) error {
		current := s.mappings[docType]
		existing := current.Flatten()
		for path, f := range props.Flatten() {
			old, ok := existing[path]
			if ok && old.Type != "" && f.Type != "" && old.Type != f.Type {
				return badRequest("illegal_argument_exception", fmt.Sprintf(
					"mapper [%s] of different type, current_type [%s], merged_type [%s]",
					path, old.Type, f.Type))
			}
		}
		s.mappings[docType] = current.Merge(props)
		return t.rebuild(s)
	})
	return opErr(db.OpPutMapping, err)
}

// GetMapping returns {index: {"mappings": {type: {"properties": ...}}}}.
func (t *Transport) GetMapping(_ context.Context, index, docType string) (map[string]any, error) {
	var out map[string]any
	err := t.adminStoreRead(index, func(s *store) error {
		types := map[string]any{}
		for name, props := range s.mappings {
			if docType != "" && name != docType {
				continue
			}
			types[name] = map[string]any{"properties": props.Source()}
		}
		if docType != "" && len(types) == 0 {
			return &db.ResponseError{
				Status: http.StatusNotFound,
				Type:   "type_missing_exception",
				Reason: "type[[" + docType + "]] missing",
			}
		}
		out = map[string]any{index: map[string]any{"mappings": types}}
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpGetMapping, err)
	}
	return out, nil
}

// OpenIndex reopens a closed index.
func (t *Transport) OpenIndex(_ context.Context, name string) error {
	return opErr(db.OpOpenIndex, t.adminStore(name, func(s *store) error {
		s.closed = false
		return nil
	}))
}

// CloseIndex rejects reads and writes until the index is reopened. Cursors
// on the index are dropped.
func (t *Transport) CloseIndex(_ context.Context, name string) error {
	return opErr(db.OpCloseIndex, t.adminStore(name, func(s *store) error {
		s.closed = true
		for id, c := range t.cursors {
			if c.index == name {
				delete(t.cursors, id)
			}
		}
		return nil
	}))
}

// GetSettings returns {index: {"settings": ...}}.
func (t *Transport) GetSettings(_ context.Context, index string) (map[string]any, error) {
	var out map[string]any
	err := t.adminStoreRead(index, func(s *store) error {
		out = map[string]any{index: map[string]any{"settings": maps.Clone(s.settings)}}
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpGetSettings, err)
	}
	return out, nil
}

// PutSettings merges settings into the index. Analysis settings can only
// change while the index is closed and take effect through a reindex.
func (t *Transport) PutSettings(_ context.Context, index string, settings map[string]any) error {
	return opErr(db.OpPutSettings, t.adminStore(index, func(s *store) error {
		_, analysis := settings["analysis"]
		if nested, ok := settings["index"].(map[string]any); ok {
			_, analysis = nested["analysis"]
		}
		if analysis && !s.closed {
			return badRequest("illegal_argument_exception",
				"can't update non dynamic settings [[index.analysis]] for open indices ["+index+"]")
		}
		merged := maps.Clone(s.settings)
		if merged == nil {
			merged = map[string]any{}
		}
		maps.Copy(merged, settings)
		s.settings = merged
		if analysis {
			return t.rebuild(s)
		}
		return s.saveMeta()
	}))
}

// Stats reports document counts in the indices stats shape.
func (t *Transport) Stats(_ context.Context, index string, _ ...string) (map[string]any, error) {
	var out map[string]any
	err := t.readStore(index, func(s *store) error {
		n, err := s.countDocs()
		if err != nil {
			return err
		}
		section := map[string]any{"docs": map[string]any{"count": n}}
		out = map[string]any{
			"_all":    map[string]any{"primaries": section, "total": section},
			"indices": map[string]any{index: map[string]any{"primaries": section, "total": section}},
		}
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpStats, err)
	}
	return out, nil
}

// Analyze runs text through a named analyzer or the analyzer of a field.
func (t *Transport) Analyze(_ context.Context, req *db.AnalyzeRequest) (*db.AnalyzeResponse, error) {
	var out *db.AnalyzeResponse
	err := t.readStore(req.Index, func(s *store) error {
		m := s.idx.Mapping()
		name := req.Analyzer
		if name == "" && req.Field != "" {
			name = m.AnalyzerNameForPath(req.Field)
		}
		if name == "" {
			name = m.AnalyzerNameForPath("")
		}
		a := m.AnalyzerNamed(name)
		if a == nil {
			return badRequest("illegal_argument_exception", "failed to find analyzer ["+name+"]")
		}
		out = analyze(a, req.Text)
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpAnalyze, err)
	}
	return out, nil
}

// analyze tokenizes each text in turn. Offsets and positions continue
// across texts.
func analyze(a analysis.Analyzer, texts []string) *db.AnalyzeResponse {
	out := &db.AnalyzeResponse{Tokens: []db.Token{}}
	offset, position := 0, 0
	for _, text := range texts {
		last := 0
		for _, tok := range a.Analyze([]byte(text)) {
			out.Tokens = append(out.Tokens, db.Token{
				Token:       string(tok.Term),
				StartOffset: offset + tok.Start,
				EndOffset:   offset + tok.End,
				Type:        tokenType(tok.Type),
				Position:    position + tok.Position - 1,
			})
			last = max(last, tok.Position)
		}
		offset += len(text) + 1
		position += last
	}
	return out
}

func tokenType(tt analysis.TokenType) string {
	switch tt {
	case analysis.AlphaNumeric:
		return "<ALPHANUM>"
	case analysis.Numeric:
		return "<NUM>"
	case analysis.Ideographic:
		return "<IDEOGRAPHIC>"
	case analysis.DateTime:
		return "<DATE>"
	case analysis.Boolean:
		return "<BOOLEAN>"
	default:
		return "word"
	}
}

// adminStoreRead is readStore for read-only operations allowed on closed
// indexes.
func (t *Transport) adminStoreRead(name string, fn func(s *store) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookupAny(name)
	if err != nil {
		return err
	}
	return fn(s)
}

func badRequest(typ, reason string) *db.ResponseError {
	return &db.ResponseError{Status: http.StatusBadRequest, Type: typ, Reason: reason}
}
