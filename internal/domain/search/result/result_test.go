package result

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

type post struct {
	entity.Annotations
	id string
}

func (p *post) ToDocument() map[string]any      { return map[string]any{"id": p.id} }
func (p *post) ChangedDocument() map[string]any { return nil }
func (p *post) IndexKey() string                { return p.id }
func (p *post) IndexTypeName() string           { return "post" }
func (p *post) CanAddToIndex() bool             { return true }

type mockLoader struct {
	calls int
	with  []string
	fn    func(ids []string) ([]entity.Entity, error)
}

func (m *mockLoader) Load(_ context.Context, ids []string, with ...string) ([]entity.Entity, error) {
	m.calls++
	m.with = with
	return m.fn(ids)
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func response(ids ...string) *db.SearchResponse {
	resp := &db.SearchResponse{Took: 4, ScrollID: "c1"}
	resp.Hits.Total.Value = 42
	resp.Hits.MaxScore = f64(3)
	for i, id := range ids {
		resp.Hits.Hits = append(resp.Hits.Hits, db.Hit{
			ID:      id,
			Type:    "post",
			Score:   f64(float64(len(ids) - i)),
			Version: i64(int64(i + 1)),
			Source:  map[string]any{"title": "t-" + id, "author": map[string]any{"name": "ann"}},
		})
	}
	return resp
}

// --- Accessors ---

func TestResult_Accessors(t *testing.T) {
	r := New(response("id3", "id1"), nil)

	if r.Total() != 42 || r.Len() != 2 || r.IsEmpty() {
		t.Fatalf("total=%d len=%d", r.Total(), r.Len())
	}
	if s, ok := r.MaxScore(); !ok || s != 3 {
		t.Errorf("MaxScore = %v,%v", s, ok)
	}
	if r.ScrollID() != "c1" || r.Took() != 4 {
		t.Errorf("scroll=%q took=%d", r.ScrollID(), r.Took())
	}
	if !reflect.DeepEqual(r.IDs(), []string{"id3", "id1"}) {
		t.Errorf("IDs = %v", r.IDs())
	}
	src, ok := r.Document("id1")
	if !ok || src["title"] != "t-id1" {
		t.Errorf("Document(id1) = %v", src)
	}
	meta, ok := r.Metadata("id3")
	if !ok || *meta.Score != 2 || *meta.Version != 1 {
		t.Errorf("Metadata(id3) = %+v", meta)
	}
	if _, ok := r.Document("missing"); ok {
		t.Error("missing document found")
	}
}

func TestResult_NilResponse(t *testing.T) {
	r := New(nil, nil)
	if !r.IsEmpty() || r.Total() != 0 {
		t.Fatal("expected empty result")
	}
	if _, ok := r.MaxScore(); ok {
		t.Error("MaxScore set")
	}
}

func TestResult_HighlightedDocuments(t *testing.T) {
	resp := response("a")
	resp.Hits.Hits[0].Highlight = map[string][]string{
		"title":       {"<em>t</em>", "-a"},
		"author.name": {"<em>ann</em>"},
	}
	r := New(resp, nil)

	docs := r.HighlightedDocuments()
	if docs[0].Source["title"] != "<em>t</em>-a" {
		t.Errorf("title = %v", docs[0].Source["title"])
	}
	if docs[0].Source["author"].(map[string]any)["name"] != "<em>ann</em>" {
		t.Errorf("author = %v", docs[0].Source["author"])
	}
	orig, _ := r.Document("a")
	if orig["title"] != "t-a" || orig["author"].(map[string]any)["name"] != "ann" {
		t.Error("source mutated")
	}
	if len(r.Highlight("a")["title"]) != 2 {
		t.Errorf("Highlight = %v", r.Highlight("a"))
	}
}

// --- Hydration ---

func TestResult_ItemsPreserveHitOrder(t *testing.T) {
	loader := &mockLoader{fn: func(ids []string) ([]entity.Entity, error) {
		if !reflect.DeepEqual(ids, []string{"id3", "id1", "id2"}) {
			t.Errorf("ids = %v", ids)
		}
		return []entity.Entity{&post{id: "id1"}, &post{id: "id2"}, &post{id: "id3"}}, nil
	}}
	r := New(response("id3", "id1", "id2"), loader)

	items, err := r.Items(context.Background())
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.IndexKey()
	}
	if !reflect.DeepEqual(got, []string{"id3", "id1", "id2"}) {
		t.Fatalf("order = %v", got)
	}
	if items[0].IndexScore() != 3 || items[0].IndexVersion() != 1 {
		t.Errorf("annotations = %v/%v", items[0].IndexScore(), items[0].IndexVersion())
	}

	if _, err := r.Items(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.calls != 1 {
		t.Errorf("loader calls = %d, want cached", loader.calls)
	}
	if _, err := r.Items(context.Background(), "author"); err != nil {
		t.Fatal(err)
	}
	if loader.calls != 2 || !reflect.DeepEqual(loader.with, []string{"author"}) {
		t.Errorf("reload calls=%d with=%v", loader.calls, loader.with)
	}
}

func TestResult_ItemsSkipsMissingEntities(t *testing.T) {
	loader := &mockLoader{fn: func([]string) ([]entity.Entity, error) {
		return []entity.Entity{&post{id: "b"}}, nil
	}}
	items, err := New(response("a", "b"), loader).Items(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].IndexKey() != "b" {
		t.Errorf("items = %v", items)
	}
}

func TestResult_ItemsErrors(t *testing.T) {
	if _, err := New(response("a"), nil).Items(context.Background()); !errors.Is(err, domain.ErrNoLoader) {
		t.Errorf("err = %v, want ErrNoLoader", err)
	}

	boom := errors.New("boom")
	loader := &mockLoader{fn: func([]string) ([]entity.Entity, error) { return nil, boom }}
	if _, err := New(response("a"), loader).Items(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	empty := &mockLoader{fn: func([]string) ([]entity.Entity, error) { return nil, boom }}
	items, err := New(response(), empty).Items(context.Background())
	if err != nil || len(items) != 0 || empty.calls != 0 {
		t.Errorf("empty page: items=%v err=%v calls=%d", items, err, empty.calls)
	}
}

// --- Page ---

func TestPage(t *testing.T) {
	p := NewPage(New(response("a"), nil), 10, 2)
	if p.LastPage() != 5 || !p.HasMorePages() || p.PerPage() != 10 || p.CurrentPage() != 2 {
		t.Errorf("last=%d more=%v", p.LastPage(), p.HasMorePages())
	}
	if NewPage(New(nil, nil), 10, 1).LastPage() != 1 {
		t.Error("empty result must have one page")
	}
}
