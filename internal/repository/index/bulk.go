package index

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// AddBatch creates the documents of es in one bulk request. Item failures are
// returned as *bulk.OperationError together with the response.
func (r *Repository) AddBatch(ctx context.Context, es []entity.Entity) (*db.BulkResponse, error) {
	if len(es) == 0 {
		return &db.BulkResponse{}, nil
	}
	items := make([]db.BulkItem, len(es))
	for i, e := range es {
		if err := r.checkAddable(e); err != nil {
			return nil, err
		}
		items[i] = r.bulkItem(bulk.ActionCreate, e.IndexKey(), e.ToDocument())
	}
	return r.bulk(ctx, es, items)
}

// UpdateBatch merges the changed fields of es in one bulk request. Entities
// without changes are skipped; a batch without any change is rejected.
func (r *Repository) UpdateBatch(ctx context.Context, es []entity.Entity) (*db.BulkResponse, error) {
	if len(es) == 0 {
		return &db.BulkResponse{}, nil
	}
	sent := make([]entity.Entity, 0, len(es))
	items := make([]db.BulkItem, 0, len(es))
	for _, e := range es {
		if err := r.checkAddable(e); err != nil {
			return nil, err
		}
		changed := e.ChangedDocument()
		if len(changed) == 0 {
			continue
		}
		sent = append(sent, e)
		items = append(items, r.bulkItem(bulk.ActionUpdate, e.IndexKey(), changed))
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyChangeSet
	}
	return r.bulk(ctx, sent, items)
}

// SaveBatch creates or overwrites the documents of es in one bulk request.
func (r *Repository) SaveBatch(ctx context.Context, es []entity.Entity) (*db.BulkResponse, error) {
	if len(es) == 0 {
		return &db.BulkResponse{}, nil
	}
	items := make([]db.BulkItem, len(es))
	for i, e := range es {
		if err := r.checkAddable(e); err != nil {
			return nil, err
		}
		items[i] = r.bulkItem(bulk.ActionIndex, e.IndexKey(), e.ToDocument())
	}
	return r.bulk(ctx, es, items)
}

// RemoveBatch deletes the documents of es in one bulk request. Missing
// documents are reported as not-found failures.
func (r *Repository) RemoveBatch(ctx context.Context, es []entity.Entity) (*db.BulkResponse, error) {
	if len(es) == 0 {
		return &db.BulkResponse{}, nil
	}
	items := make([]db.BulkItem, len(es))
	for i, e := range es {
		if err := r.checkType(e); err != nil {
			return nil, err
		}
		items[i] = r.bulkItem(bulk.ActionDelete, e.IndexKey(), nil)
	}
	return r.bulk(ctx, es, items)
}

func (r *Repository) bulkItem(action bulk.Action, id string, body map[string]any) db.BulkItem {
	return db.BulkItem{Action: action, Index: r.index, Type: r.docType, ID: id, Body: body}
}

func (r *Repository) bulk(ctx context.Context, sent []entity.Entity, items []db.BulkItem) (*db.BulkResponse, error) {
	resp, err := r.transport.Bulk(ctx, &db.BulkRequest{Items: items, Refresh: r.Refresh()})
	if err != nil {
		return nil, err
	}

	for i, entry := range resp.Items {
		if i >= len(sent) {
			break
		}
		if _, out, ok := entry.Single(); ok && !out.Failed() && out.Version > 0 {
			sent[i].SetIndexVersion(out.Version)
		}
	}

	if opErr := bulk.Correlate(sent, resp.Items); opErr != nil {
		r.logger.Warn("bulk request partially failed",
			zap.String("index", r.index),
			zap.String("type", r.docType),
			zap.Int("items", len(items)),
			zap.Int("failed", opErr.Len()),
		)
		return resp, opErr
	}
	return resp, nil
}
