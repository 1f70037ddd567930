// Package instrumented decorates a db.Transport with Prometheus metrics and
// structured logging.
package instrumented

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
	"github.com/kailas-cloud/elodex/internal/metrics"
)

// Compile-time checks.
var (
	_ db.Transport  = (*Transport)(nil)
	_ db.IndexAdmin = (*Transport)(nil)
)

// Transport records every call made to the wrapped transport.
type Transport struct {
	next    db.Transport
	backend string
	log     *zap.Logger
}

// New wraps next. backend labels the metrics, e.g. "elasticsearch".
func New(next db.Transport, backend string, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	metrics.RegisterBackendMetrics()
	return &Transport{next: next, backend: backend, log: log.With(zap.String("backend", backend))}
}

// Unwrap returns the decorated transport.
func (t *Transport) Unwrap() db.Transport { return t.next }

func (t *Transport) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := statusOf(err)
	metrics.BackendRequestsTotal.WithLabelValues(t.backend, op, status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(t.backend, op).Observe(elapsed.Seconds())

	if status == "error" {
		t.log.Warn("backend request failed", zap.String("op", op), zap.Duration("took", elapsed), zap.Error(err))
		return
	}
	t.log.Debug("backend request", zap.String("op", op), zap.String("status", status), zap.Duration("took", elapsed))
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, db.ErrDocumentNotFound), errors.Is(err, db.ErrIndexNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func call[T any](t *Transport, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	t.observe(op, start, err)
	return out, err
}

func exec(t *Transport, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.observe(op, start, err)
	return err
}

// Ping checks connectivity.
func (t *Transport) Ping(ctx context.Context) error {
	return exec(t, db.OpPing, func() error { return t.next.Ping(ctx) })
}

// Close closes the wrapped transport.
func (t *Transport) Close() { t.next.Close() }

// WaitForReady delegates to the wrapped transport.
func (t *Transport) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return t.next.WaitForReady(ctx, timeout)
}

// Create records a create.
func (t *Transport) Create(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return call(t, db.OpCreate, func() (*db.WriteResponse, error) { return t.next.Create(ctx, req) })
}

// Index records an index.
func (t *Transport) Index(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return call(t, db.OpIndex, func() (*db.WriteResponse, error) { return t.next.Index(ctx, req) })
}

// Update records an update.
func (t *Transport) Update(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return call(t, db.OpUpdate, func() (*db.WriteResponse, error) { return t.next.Update(ctx, req) })
}

// Delete records a delete.
func (t *Transport) Delete(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return call(t, db.OpDelete, func() (*db.WriteResponse, error) { return t.next.Delete(ctx, req) })
}

// Bulk records the request and the outcome of every item.
func (t *Transport) Bulk(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
	res, err := call(t, db.OpBulk, func() (*db.BulkResponse, error) { return t.next.Bulk(ctx, req) })
	if err != nil {
		return nil, err
	}
	failed := 0
	for _, entry := range res.Items {
		action, outcome, ok := entry.Single()
		if !ok {
			continue
		}
		label := "ok"
		if outcome.Failed() {
			label = "failed"
			failed++
		}
		metrics.BulkItemsTotal.WithLabelValues(t.backend, string(action), label).Inc()
	}
	if failed > 0 {
		t.log.Info("bulk completed with item failures",
			zap.Int("items", len(req.Items)), zap.Int("failed", failed))
	}
	return res, nil
}

// Get records a get.
func (t *Transport) Get(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error) {
	return call(t, db.OpGet, func() (*db.GetResponse, error) { return t.next.Get(ctx, req) })
}

// MultiGet records a multi-get.
func (t *Transport) MultiGet(ctx context.Context, req *db.MultiGetRequest) (*db.MultiGetResponse, error) {
	return call(t, db.OpMultiGet, func() (*db.MultiGetResponse, error) { return t.next.MultiGet(ctx, req) })
}

// Search records a search. Opening a scroll counts as its first page.
func (t *Transport) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error) {
	res, err := call(t, db.OpSearch, func() (*db.SearchResponse, error) { return t.next.Search(ctx, req) })
	if err == nil && req.Scroll > 0 {
		metrics.ScrollPagesTotal.WithLabelValues(t.backend).Inc()
	}
	return res, err
}

// Count records a count.
func (t *Transport) Count(ctx context.Context, req *db.CountRequest) (*db.CountResponse, error) {
	return call(t, db.OpCount, func() (*db.CountResponse, error) { return t.next.Count(ctx, req) })
}

// Scroll records a scroll page.
func (t *Transport) Scroll(ctx context.Context, req *db.ScrollRequest) (*db.SearchResponse, error) {
	res, err := call(t, db.OpScroll, func() (*db.SearchResponse, error) { return t.next.Scroll(ctx, req) })
	if err == nil {
		metrics.ScrollPagesTotal.WithLabelValues(t.backend).Inc()
	}
	return res, err
}

// ClearScroll records a cursor release.
func (t *Transport) ClearScroll(ctx context.Context, scrollID string) error {
	return exec(t, db.OpClearScroll, func() error { return t.next.ClearScroll(ctx, scrollID) })
}

// CreateIndex records an index creation.
func (t *Transport) CreateIndex(ctx context.Context, name string, body map[string]any) error {
	return exec(t, db.OpCreateIndex, func() error { return t.next.CreateIndex(ctx, name, body) })
}

// DeleteIndex records an index deletion.
func (t *Transport) DeleteIndex(ctx context.Context, name string) error {
	return exec(t, db.OpDeleteIndex, func() error { return t.next.DeleteIndex(ctx, name) })
}

// IndexExists records an existence check.
func (t *Transport) IndexExists(ctx context.Context, names ...string) (bool, error) {
	return call(t, db.OpIndexExists, func() (bool, error) { return t.next.IndexExists(ctx, names...) })
}

// PutMapping records a mapping update.
func (t *Transport) PutMapping(ctx context.Context, index, docType string, props mapping.Properties) error {
	return exec(t, db.OpPutMapping, func() error { return t.next.PutMapping(ctx, index, docType, props) })
}

func (t *Transport) admin(op string) (db.IndexAdmin, error) {
	a, ok := t.next.(db.IndexAdmin)
	if !ok {
		return nil, &db.Error{Op: op, Err: db.ErrNotSupported}
	}
	return a, nil
}

// GetMapping records a mapping read.
func (t *Transport) GetMapping(ctx context.Context, index, docType string) (map[string]any, error) {
	return call(t, db.OpGetMapping, func() (map[string]any, error) {
		a, err := t.admin(db.OpGetMapping)
		if err != nil {
			return nil, err
		}
		return a.GetMapping(ctx, index, docType)
	})
}

// OpenIndex records an index open.
func (t *Transport) OpenIndex(ctx context.Context, name string) error {
	return exec(t, db.OpOpenIndex, func() error {
		a, err := t.admin(db.OpOpenIndex)
		if err != nil {
			return err
		}
		return a.OpenIndex(ctx, name)
	})
}

// CloseIndex records an index close.
func (t *Transport) CloseIndex(ctx context.Context, name string) error {
	return exec(t, db.OpCloseIndex, func() error {
		a, err := t.admin(db.OpCloseIndex)
		if err != nil {
			return err
		}
		return a.CloseIndex(ctx, name)
	})
}

// GetSettings records a settings read.
func (t *Transport) GetSettings(ctx context.Context, index string) (map[string]any, error) {
	return call(t, db.OpGetSettings, func() (map[string]any, error) {
		a, err := t.admin(db.OpGetSettings)
		if err != nil {
			return nil, err
		}
		return a.GetSettings(ctx, index)
	})
}

// PutSettings records a settings update.
func (t *Transport) PutSettings(ctx context.Context, index string, settings map[string]any) error {
	return exec(t, db.OpPutSettings, func() error {
		a, err := t.admin(db.OpPutSettings)
		if err != nil {
			return err
		}
		return a.PutSettings(ctx, index, settings)
	})
}

// Stats records a stats read.
func (t *Transport) Stats(ctx context.Context, index string, metricNames ...string) (map[string]any, error) {
	return call(t, db.OpStats, func() (map[string]any, error) {
		a, err := t.admin(db.OpStats)
		if err != nil {
			return nil, err
		}
		return a.Stats(ctx, index, metricNames...)
	})
}

// Analyze records an analyze call.
func (t *Transport) Analyze(ctx context.Context, req *db.AnalyzeRequest) (*db.AnalyzeResponse, error) {
	return call(t, db.OpAnalyze, func() (*db.AnalyzeResponse, error) {
		a, err := t.admin(db.OpAnalyze)
		if err != nil {
			return nil, err
		}
		return a.Analyze(ctx, req)
	})
}
