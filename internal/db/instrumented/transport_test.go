package instrumented

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/metrics"
)

// fakeTransport implements only what a test sets; other calls panic on the
// nil embedded interface.
type fakeTransport struct {
	db.Transport
	getFn    func(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error)
	bulkFn   func(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error)
	searchFn func(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error)
}

func (f *fakeTransport) Get(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error) {
	return f.getFn(ctx, req)
}

func (f *fakeTransport) Bulk(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
	return f.bulkFn(ctx, req)
}

func (f *fakeTransport) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error) {
	return f.searchFn(ctx, req)
}

func TestGet_NotFoundIsNotAnError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tr := New(&fakeTransport{
		getFn: func(context.Context, *db.GetRequest) (*db.GetResponse, error) {
			return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
		},
	}, "test-get", zap.New(core))

	_, err := tr.Get(context.Background(), &db.GetRequest{Index: "i", Type: "t", ID: "1"})
	if !errors.Is(err, db.ErrDocumentNotFound) {
		t.Fatalf("expected error passed through, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.BackendRequestsTotal.WithLabelValues("test-get", db.OpGet, "not_found")); got != 1 {
		t.Fatalf("expected one not_found request, got %f", got)
	}
	if logs.FilterMessage("backend request failed").Len() != 0 {
		t.Fatal("not found should not be logged as a failure")
	}
}

func TestSearch_ErrorLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	boom := errors.New("boom")
	tr := New(&fakeTransport{
		searchFn: func(context.Context, *db.SearchRequest) (*db.SearchResponse, error) {
			return nil, boom
		},
	}, "test-search", zap.New(core))

	if _, err := tr.Search(context.Background(), &db.SearchRequest{Index: "i"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.BackendRequestsTotal.WithLabelValues("test-search", db.OpSearch, "error")); got != 1 {
		t.Fatalf("expected one failed request, got %f", got)
	}
	entries := logs.FilterMessage("backend request failed").All()
	if len(entries) != 1 || entries[0].ContextMap()["backend"] != "test-search" {
		t.Fatalf("expected one warning with backend field, got %v", entries)
	}
}

func TestBulk_CountsItemOutcomes(t *testing.T) {
	found := false
	tr := New(&fakeTransport{
		bulkFn: func(context.Context, *db.BulkRequest) (*db.BulkResponse, error) {
			return &db.BulkResponse{Errors: true, Items: []bulk.Entry{
				bulk.NewEntry(bulk.ActionIndex, bulk.Outcome{ID: "1", Status: 201, Result: "created"}),
				bulk.NewEntry(bulk.ActionDelete, bulk.Outcome{ID: "2", Status: 404, Found: &found}),
				bulk.NewEntry(bulk.ActionIndex, bulk.Outcome{ID: "3", Status: 200, Result: "updated"}),
			}}, nil
		},
	}, "test-bulk", nil)

	if _, err := tr.Bulk(context.Background(), &db.BulkRequest{}); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if got := testutil.ToFloat64(metrics.BulkItemsTotal.WithLabelValues("test-bulk", "index", "ok")); got != 2 {
		t.Fatalf("expected 2 ok index items, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.BulkItemsTotal.WithLabelValues("test-bulk", "delete", "failed")); got != 1 {
		t.Fatalf("expected 1 failed delete item, got %f", got)
	}
}

func TestScrollSearch_CountsPage(t *testing.T) {
	tr := New(&fakeTransport{
		searchFn: func(context.Context, *db.SearchRequest) (*db.SearchResponse, error) {
			return &db.SearchResponse{ScrollID: "c"}, nil
		},
	}, "test-scroll", nil)

	if _, err := tr.Search(context.Background(), &db.SearchRequest{Scroll: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ScrollPagesTotal.WithLabelValues("test-scroll")); got != 1 {
		t.Fatalf("expected 1 scroll page, got %f", got)
	}
}

func TestAdmin_NotSupported(t *testing.T) {
	tr := New(&fakeTransport{}, "test-admin", nil)
	_, err := tr.GetMapping(context.Background(), "i", "t")
	if !errors.Is(err, db.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}
