package elodex

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kailas-cloud/elodex/internal/db"
)

type article struct {
	Annotations

	ID        int       `elodex:"id"`
	Title     string    `elodex:"title"`
	Views     int       `elodex:"views"`
	Published time.Time `elodex:"published_at"`
	draft     bool
}

func (a *article) ToDocument() map[string]any {
	return map[string]any{
		"id":           a.ID,
		"title":        a.Title,
		"views":        a.Views,
		"published_at": a.Published.Format("2006-01-02 15:04:05"),
	}
}
func (a *article) ChangedDocument() map[string]any { return map[string]any{"views": a.Views} }
func (a *article) IndexKey() string                { return strconv.Itoa(a.ID) }
func (a *article) IndexTypeName() string           { return "article" }
func (a *article) CanAddToIndex() bool             { return !a.draft }

type articleLoader map[string]*article

func (l articleLoader) Load(_ context.Context, ids []string, _ ...string) ([]Entity, error) {
	var out []Entity
	for _, id := range ids {
		if a, ok := l[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown"}
	if _, err := createTransport(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_RequiresAddress(t *testing.T) {
	if _, err := New(WithElasticsearch()); err == nil {
		t.Fatal("expected error when no address provided")
	}
	if _, err := New(WithRedis()); err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(WithEmbedded(""), WithRefresh(true), WithDefaultIndex("news"), WithMetrics())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(c.Close)

	ctx := context.Background()
	if err := c.Indexes().Create(ctx, "news", nil); err != nil {
		t.Fatalf("create index: %v", err)
	}
	model, err := ModelOf[article]()
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if _, err := c.Indexes().PutModelMapping(ctx, "news", "article", model); err != nil {
		t.Fatalf("put mapping: %v", err)
	}
	return c
}

func TestClient_WriteSearchHydrate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	articles := []*article{
		{ID: 1, Title: "Go generics in practice", Views: 50, Published: day},
		{ID: 2, Title: "Indexing with bleve", Views: 10, Published: day},
		{ID: 3, Title: "Go errors", Views: 70, Published: day},
	}
	store := articleLoader{}
	for _, a := range articles {
		store[a.IndexKey()] = a
	}
	c.RegisterLoader(&article{}, store)

	repo, err := c.Repository(&article{}, "")
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	batch := make([]Entity, len(articles))
	for i, a := range articles {
		batch[i] = a
	}
	if _, err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	res, err := repo.Search(ctx, NewQuery().Match("title", "go").Sort("views", Desc))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	items, err := res.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || items[0].IndexKey() != "3" || items[1].IndexKey() != "1" {
		t.Fatalf("unexpected hydration order: %v", res.IDs())
	}

	_, err = repo.Add(ctx, articles[0])
	var re *db.ResponseError
	if !errors.As(err, &re) || re.Status != http.StatusConflict {
		t.Fatalf("expected conflict on duplicate add, got %v", err)
	}
}

func TestClient_Scroll(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	repo, _ := c.Repository(&article{}, "news")

	batch := make([]Entity, 5)
	for i := range batch {
		batch[i] = &article{ID: i + 1, Title: "item", Published: time.Now()}
	}
	if _, err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	var seen []string
	err := repo.Scroll(ctx, NewQuery().MatchAll().Limit(2).Scroll(time.Minute), func(_ context.Context, page *Result) error {
		seen = append(seen, page.IDs()...)
		return nil
	})
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 ids, got %v", seen)
	}
}

func TestClient_SavedAndDeleted(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	a := &article{ID: 9, Title: "sync", Published: time.Now()}

	if err := c.Saved(ctx, a); err != nil {
		t.Fatalf("saved: %v", err)
	}
	repo, _ := c.Repository(&article{}, "")
	if n, _ := repo.Count(ctx, NewQuery()); n != 1 {
		t.Fatalf("expected 1 document, got %d", n)
	}

	a.draft = true
	if err := c.Saved(ctx, a); err != nil {
		t.Fatalf("saved draft: %v", err)
	}
	if n, _ := repo.Count(ctx, NewQuery()); n != 0 {
		t.Fatalf("expected draft to be removed, got %d", n)
	}
	if err := c.Deleted(ctx, a); err != nil {
		t.Fatalf("deleting a missing document should succeed, got %v", err)
	}
}

func TestClient_IndexAdmin(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	m, err := c.Indexes().Mappings(ctx, "news", "article")
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	if _, ok := m["news"]; !ok {
		t.Fatalf("unexpected mapping response: %v", m)
	}
	tokens, err := c.Indexes().Analyze(ctx, "news", "standard", "", "Quick Fox")
	if err != nil || len(tokens) != 2 {
		t.Fatalf("analyze: %v %v", tokens, err)
	}
	if ok, _ := c.Indexes().Exists(ctx, "news", "missing"); ok {
		t.Fatal("expected missing index to be reported")
	}
}

func TestClient_SeedAndGormLoader(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&storedArticle{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rows := []storedArticle{{ID: 1, Title: "gorm and bleve"}, {ID: 2, Title: "plain sql"}}
	if err := gdb.Create(&rows).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	rep, err := c.Seed(ctx, gdb, Table{Name: "stored_articles", Key: "id", Type: "stored_article"}, 10)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if rep.Indexed != 2 || len(rep.Failed) != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	c.RegisterLoader(&storedArticle{}, GormLoader[storedArticle](gdb, "id"))
	repo, err := c.Repository(&storedArticle{}, "")
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	res, err := repo.Search(ctx, NewQuery().Match("title", "bleve"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	items, err := res.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].(*storedArticle).Title != "gorm and bleve" {
		t.Fatalf("unexpected items: %v", items)
	}
}

type storedArticle struct {
	Annotations `gorm:"-"`

	ID    int64
	Title string
}

func (a *storedArticle) ToDocument() map[string]any {
	return map[string]any{"id": a.ID, "title": a.Title}
}
func (a *storedArticle) ChangedDocument() map[string]any { return a.ToDocument() }
func (a *storedArticle) IndexKey() string                { return strconv.FormatInt(a.ID, 10) }
func (a *storedArticle) IndexTypeName() string           { return "stored_article" }
func (a *storedArticle) CanAddToIndex() bool             { return true }
