package index

import (
	"context"
	"testing"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// mockTransport implements the consumer interface for tests.
type mockTransport struct {
	createFn      func(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error)
	indexFn       func(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error)
	updateFn      func(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error)
	deleteFn      func(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error)
	bulkFn        func(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error)
	getFn         func(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error)
	multiGetFn    func(ctx context.Context, req *db.MultiGetRequest) (*db.MultiGetResponse, error)
	searchFn      func(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error)
	countFn       func(ctx context.Context, req *db.CountRequest) (*db.CountResponse, error)
	scrollFn      func(ctx context.Context, req *db.ScrollRequest) (*db.SearchResponse, error)
	clearScrollFn func(ctx context.Context, scrollID string) error

	calls int
}

func (m *mockTransport) Create(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	m.calls++
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &db.WriteResponse{ID: req.ID, Version: 1, Result: "created"}, nil
}

func (m *mockTransport) Index(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	m.calls++
	if m.indexFn != nil {
		return m.indexFn(ctx, req)
	}
	return &db.WriteResponse{ID: req.ID, Version: 1, Result: "created"}, nil
}

func (m *mockTransport) Update(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	m.calls++
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return &db.WriteResponse{ID: req.ID, Version: 2, Result: "updated"}, nil
}

func (m *mockTransport) Delete(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	m.calls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, req)
	}
	return &db.WriteResponse{ID: req.ID, Version: 3, Result: "deleted"}, nil
}

func (m *mockTransport) Bulk(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
	m.calls++
	if m.bulkFn != nil {
		return m.bulkFn(ctx, req)
	}
	resp := &db.BulkResponse{Items: make([]bulk.Entry, len(req.Items))}
	for i, it := range req.Items {
		resp.Items[i] = bulk.NewEntry(it.Action, bulk.Outcome{ID: it.ID, Status: 200})
	}
	return resp, nil
}

func (m *mockTransport) Get(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error) {
	m.calls++
	if m.getFn != nil {
		return m.getFn(ctx, req)
	}
	return &db.GetResponse{ID: req.ID, Found: true}, nil
}

func (m *mockTransport) MultiGet(ctx context.Context, req *db.MultiGetRequest) (*db.MultiGetResponse, error) {
	m.calls++
	if m.multiGetFn != nil {
		return m.multiGetFn(ctx, req)
	}
	resp := &db.MultiGetResponse{Docs: make([]db.GetResponse, len(req.IDs))}
	for i, id := range req.IDs {
		resp.Docs[i] = db.GetResponse{ID: id, Found: true}
	}
	return resp, nil
}

func (m *mockTransport) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return &db.SearchResponse{}, nil
}

func (m *mockTransport) Count(ctx context.Context, req *db.CountRequest) (*db.CountResponse, error) {
	m.calls++
	if m.countFn != nil {
		return m.countFn(ctx, req)
	}
	return &db.CountResponse{}, nil
}

func (m *mockTransport) Scroll(ctx context.Context, req *db.ScrollRequest) (*db.SearchResponse, error) {
	m.calls++
	if m.scrollFn != nil {
		return m.scrollFn(ctx, req)
	}
	return &db.SearchResponse{}, nil
}

func (m *mockTransport) ClearScroll(ctx context.Context, scrollID string) error {
	m.calls++
	if m.clearScrollFn != nil {
		return m.clearScrollFn(ctx, scrollID)
	}
	return nil
}

// post is the entity the test repositories are pinned to.
type post struct {
	entity.Annotations
	id      string
	title   string
	changed map[string]any
	hidden  bool
}

func (p *post) ToDocument() map[string]any      { return map[string]any{"id": p.id, "title": p.title} }
func (p *post) ChangedDocument() map[string]any { return p.changed }
func (p *post) IndexKey() string                { return p.id }
func (p *post) IndexTypeName() string           { return "post" }
func (p *post) CanAddToIndex() bool             { return !p.hidden }

// featuredPost embeds post and satisfies entity.Entity through promotion.
type featuredPost struct {
	post
}

type comment struct {
	entity.Annotations
	id string
}

func (c *comment) ToDocument() map[string]any      { return map[string]any{"id": c.id} }
func (c *comment) ChangedDocument() map[string]any { return nil }
func (c *comment) IndexKey() string                { return c.id }
func (c *comment) IndexTypeName() string           { return "comment" }
func (c *comment) CanAddToIndex() bool             { return true }

func posts(ids ...string) []entity.Entity {
	out := make([]entity.Entity, len(ids))
	for i, id := range ids {
		out[i] = &post{id: id, title: "title " + id, changed: map[string]any{"title": "new " + id}}
	}
	return out
}

func newTestRepo(t *testing.T, opts ...Option) (*Repository, *mockTransport) {
	t.Helper()
	mt := &mockTransport{}
	repo, err := New(mt, &post{}, "blog", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return repo, mt
}

func hitsResponse(total int64, scrollID string, ids ...string) *db.SearchResponse {
	resp := &db.SearchResponse{ScrollID: scrollID}
	resp.Hits.Total.Value = total
	for _, id := range ids {
		resp.Hits.Hits = append(resp.Hits.Hits, db.Hit{ID: id, Type: "post", Source: map[string]any{"id": id}})
	}
	return resp
}
