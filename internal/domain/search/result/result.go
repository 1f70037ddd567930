// Package result wraps a raw search response with id-keyed access and lazy
// hydration of the matching entities.
package result

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// Document is one hit's source keyed by its id.
type Document struct {
	ID     string
	Source map[string]any
}

// Metadata is the per-hit information that is not part of the source.
type Metadata struct {
	Index     string
	Type      string
	Score     *float64
	Version   *int64
	Highlight map[string][]string
	Sort      []any
}

// Result is a page of search hits. Document order equals hit order.
type Result struct {
	total        int64
	maxScore     *float64
	took         int
	timedOut     bool
	shards       db.Shards
	scrollID     string
	aggregations map[string]json.RawMessage
	suggest      map[string][]db.Suggestion

	docs []Document
	meta []Metadata
	byID map[string]int

	loader entity.Loader

	mu     sync.Mutex
	items  []entity.Entity
	loaded bool
}

// New wraps resp. loader may be nil when hydration is not needed.
func New(resp *db.SearchResponse, loader entity.Loader) *Result {
	r := &Result{loader: loader, byID: make(map[string]int)}
	if resp == nil {
		return r
	}

	r.total = resp.Hits.Total.Value
	r.maxScore = resp.Hits.MaxScore
	r.took = resp.Took
	r.timedOut = resp.TimedOut
	r.shards = resp.Shards
	r.scrollID = resp.ScrollID
	r.aggregations = resp.Aggregations
	r.suggest = resp.Suggest

	r.docs = make([]Document, 0, len(resp.Hits.Hits))
	r.meta = make([]Metadata, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		if _, dup := r.byID[h.ID]; !dup {
			r.byID[h.ID] = len(r.docs)
		}
		r.docs = append(r.docs, Document{ID: h.ID, Source: h.Source})
		r.meta = append(r.meta, Metadata{
			Index:     h.Index,
			Type:      h.Type,
			Score:     h.Score,
			Version:   h.Version,
			Highlight: h.Highlight,
			Sort:      h.Sort,
		})
	}
	return r
}

// Total returns the number of matching documents across all pages.
func (r *Result) Total() int64 { return r.total }

// MaxScore returns the best score, if the backend computed one.
func (r *Result) MaxScore() (float64, bool) {
	if r.maxScore == nil {
		return 0, false
	}
	return *r.maxScore, true
}

// Took returns the backend execution time in milliseconds.
func (r *Result) Took() int { return r.took }

// TimedOut reports whether the backend cut the search short.
func (r *Result) TimedOut() bool { return r.timedOut }

// Shards returns the shard participation summary.
func (r *Result) Shards() db.Shards { return r.shards }

// ScrollID returns the continuation token, empty when not scrolling.
func (r *Result) ScrollID() string { return r.scrollID }

// Aggregations returns the raw aggregation results.
func (r *Result) Aggregations() map[string]json.RawMessage { return r.aggregations }

// Suggestions returns the suggester results keyed by suggestion name.
func (r *Result) Suggestions() map[string][]db.Suggestion { return r.suggest }

// Len returns the number of hits on this page.
func (r *Result) Len() int { return len(r.docs) }

// IsEmpty reports whether the page has no hits.
func (r *Result) IsEmpty() bool { return len(r.docs) == 0 }

// Documents returns the hit sources in hit order.
func (r *Result) Documents() []Document {
	out := make([]Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// IDs returns the hit ids in hit order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.docs))
	for i, d := range r.docs {
		ids[i] = d.ID
	}
	return ids
}

// Document returns the source of id.
func (r *Result) Document(id string) (map[string]any, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.docs[i].Source, true
}

// Metadata returns the metadata of id.
func (r *Result) Metadata(id string) (Metadata, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Metadata{}, false
	}
	return r.meta[i], true
}

// Highlight returns the highlight fragments of id.
func (r *Result) Highlight(id string) map[string][]string {
	m, _ := r.Metadata(id)
	return m.Highlight
}

// HighlightedDocuments returns the sources with every highlighted field
// replaced by its joined fragments, in hit order.
func (r *Result) HighlightedDocuments() []Document {
	out := make([]Document, len(r.docs))
	for i, d := range r.docs {
		src := cloneSource(d.Source)
		for field, fragments := range r.meta[i].Highlight {
			setPath(src, field, strings.Join(fragments, ""))
		}
		out[i] = Document{ID: d.ID, Source: src}
	}
	return out
}

// Items hydrates the hits through the entity loader, preserving hit order.
// Entities missing from the store are skipped. The first successful load is
// cached; passing relations forces a reload.
func (r *Result) Items(ctx context.Context, with ...string) ([]entity.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded && len(with) == 0 {
		return r.items, nil
	}
	if r.loader == nil {
		return nil, domain.ErrNoLoader
	}
	if len(r.docs) == 0 {
		r.items, r.loaded = []entity.Entity{}, true
		return r.items, nil
	}

	loaded, err := r.loader.Load(ctx, r.IDs(), with...)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}

	byKey := make(map[string]entity.Entity, len(loaded))
	for _, e := range loaded {
		byKey[e.IndexKey()] = e
	}

	items := make([]entity.Entity, 0, len(r.docs))
	for i, d := range r.docs {
		e, ok := byKey[d.ID]
		if !ok {
			continue
		}
		if s := r.meta[i].Score; s != nil {
			e.SetIndexScore(*s)
		}
		if v := r.meta[i].Version; v != nil {
			e.SetIndexVersion(*v)
		}
		items = append(items, e)
	}

	r.items, r.loaded = items, true
	return items, nil
}

func cloneSource(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if m, ok := v.(map[string]any); ok {
			out[k] = cloneSource(m)
			continue
		}
		out[k] = v
	}
	return out
}

// setPath writes value at a dotted path when the intermediate objects exist,
// otherwise under the literal key.
func setPath(src map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := src
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			src[path] = value
			return
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
