package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
)

// Create indexes a new document and fails with 409 if it exists.
func (t *Transport) Create(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	body, err := jsonBody(req.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpCreate, Err: err}
	}
	var out db.WriteResponse
	err = t.do(ctx, db.OpCreate, esapi.CreateRequest{
		Index:        req.Index,
		DocumentType: req.Type,
		DocumentID:   req.ID,
		Body:         body,
		Refresh:      refreshParam(req.Refresh),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Index creates or overwrites a document.
func (t *Transport) Index(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	body, err := jsonBody(req.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpIndex, Err: err}
	}
	var out db.WriteResponse
	err = t.do(ctx, db.OpIndex, esapi.IndexRequest{
		Index:        req.Index,
		DocumentType: req.Type,
		DocumentID:   req.ID,
		Body:         body,
		Refresh:      refreshParam(req.Refresh),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update merges req.Body into an existing document.
func (t *Transport) Update(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	if len(req.Body) == 0 {
		return nil, &db.Error{Op: db.OpUpdate, Err: errEmptyBody}
	}
	body, err := jsonBody(map[string]any{"doc": req.Body})
	if err != nil {
		return nil, &db.Error{Op: db.OpUpdate, Err: err}
	}
	var out db.WriteResponse
	err = t.do(ctx, db.OpUpdate, esapi.UpdateRequest{
		Index:        req.Index,
		DocumentType: req.Type,
		DocumentID:   req.ID,
		Body:         body,
		Refresh:      refreshParam(req.Refresh),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a document.
func (t *Transport) Delete(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	var out db.WriteResponse
	err := t.do(ctx, db.OpDelete, esapi.DeleteRequest{
		Index:        req.Index,
		DocumentType: req.Type,
		DocumentID:   req.ID,
		Refresh:      refreshParam(req.Refresh),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Bulk sends all items as one NDJSON request.
func (t *Transport) Bulk(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
	if len(req.Items) == 0 {
		return &db.BulkResponse{}, nil
	}
	body, err := encodeBulk(req.Items)
	if err != nil {
		return nil, &db.Error{Op: db.OpBulk, Err: err}
	}
	var out db.BulkResponse
	err = t.do(ctx, db.OpBulk, esapi.BulkRequest{
		Body:    body,
		Refresh: refreshParam(req.Refresh),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type bulkMeta struct {
	Index string `json:"_index,omitempty"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id,omitempty"`
}

func encodeBulk(items []db.BulkItem) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, it := range items {
		meta := map[bulk.Action]bulkMeta{it.Action: {Index: it.Index, Type: it.Type, ID: it.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode item %d: %w", i, err)
		}
		var source any
		switch it.Action {
		case bulk.ActionDelete:
			continue
		case bulk.ActionUpdate:
			source = map[string]any{"doc": it.Body}
		case bulk.ActionCreate, bulk.ActionIndex:
			source = it.Body
		default:
			return nil, fmt.Errorf("item %d: unknown action %q", i, it.Action)
		}
		if err := enc.Encode(source); err != nil {
			return nil, fmt.Errorf("encode item %d source: %w", i, err)
		}
	}
	return &buf, nil
}

// Get fetches one document. A missing document yields db.ErrDocumentNotFound.
func (t *Transport) Get(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error) {
	var out db.GetResponse
	err := t.do(ctx, db.OpGet, esapi.GetRequest{
		Index:        req.Index,
		DocumentType: req.Type,
		DocumentID:   req.ID,
		Source:       req.Source,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MultiGet fetches documents by id in request order.
func (t *Transport) MultiGet(ctx context.Context, req *db.MultiGetRequest) (*db.MultiGetResponse, error) {
	if len(req.IDs) == 0 {
		return &db.MultiGetResponse{}, nil
	}
	body, err := jsonBody(map[string]any{"ids": req.IDs})
	if err != nil {
		return nil, &db.Error{Op: db.OpMultiGet, Err: err}
	}
	var out db.MultiGetResponse
	err = t.do(ctx, db.OpMultiGet, esapi.MgetRequest{
		Index:        req.Index,
		DocumentType: req.Type,
		Body:         body,
		Source:       req.Source,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
