package elastic

import (
	"context"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

// CreateIndex creates an index with the given settings and mappings body.
func (t *Transport) CreateIndex(ctx context.Context, name string, body map[string]any) error {
	req := esapi.IndicesCreateRequest{Index: name}
	if len(body) > 0 {
		r, err := jsonBody(body)
		if err != nil {
			return &db.Error{Op: db.OpCreateIndex, Err: err}
		}
		req.Body = r
	}
	return t.do(ctx, db.OpCreateIndex, req, nil)
}

// DeleteIndex drops an index and all its documents.
func (t *Transport) DeleteIndex(ctx context.Context, name string) error {
	return t.do(ctx, db.OpDeleteIndex, esapi.IndicesDeleteRequest{Index: []string{name}}, nil)
}

// IndexExists reports whether all named indices exist.
func (t *Transport) IndexExists(ctx context.Context, names ...string) (bool, error) {
	res, err := esapi.IndicesExistsRequest{Index: names}.Do(ctx, t.client)
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexExists, Err: &db.ResponseError{
			Status: res.StatusCode,
			Reason: http.StatusText(res.StatusCode),
		}}
	}
}

// PutMapping registers the properties of docType in index.
func (t *Transport) PutMapping(ctx context.Context, index, docType string, props mapping.Properties) error {
	body, err := jsonBody(map[string]any{"properties": props.Source()})
	if err != nil {
		return &db.Error{Op: db.OpPutMapping, Err: err}
	}
	return t.do(ctx, db.OpPutMapping, esapi.IndicesPutMappingRequest{
		Index:           []string{index},
		DocumentType:    docType,
		Body:            body,
		IncludeTypeName: boolPtr(true),
	}, nil)
}

// GetMapping returns the mapping of docType, or of the whole index when
// docType is empty.
func (t *Transport) GetMapping(ctx context.Context, index, docType string) (map[string]any, error) {
	req := esapi.IndicesGetMappingRequest{Index: []string{index}, IncludeTypeName: boolPtr(true)}
	if docType != "" {
		req.DocumentType = []string{docType}
	}
	var out map[string]any
	if err := t.do(ctx, db.OpGetMapping, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenIndex reopens a closed index.
func (t *Transport) OpenIndex(ctx context.Context, name string) error {
	return t.do(ctx, db.OpOpenIndex, esapi.IndicesOpenRequest{Index: []string{name}}, nil)
}

// CloseIndex closes an index for reads and writes.
func (t *Transport) CloseIndex(ctx context.Context, name string) error {
	return t.do(ctx, db.OpCloseIndex, esapi.IndicesCloseRequest{Index: []string{name}}, nil)
}

// GetSettings returns index settings.
func (t *Transport) GetSettings(ctx context.Context, index string) (map[string]any, error) {
	var out map[string]any
	if err := t.do(ctx, db.OpGetSettings, esapi.IndicesGetSettingsRequest{Index: []string{index}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutSettings updates dynamic index settings.
func (t *Transport) PutSettings(ctx context.Context, index string, settings map[string]any) error {
	body, err := jsonBody(settings)
	if err != nil {
		return &db.Error{Op: db.OpPutSettings, Err: err}
	}
	return t.do(ctx, db.OpPutSettings, esapi.IndicesPutSettingsRequest{
		Index: []string{index},
		Body:  body,
	}, nil)
}

// Stats returns index statistics, optionally limited to metrics.
func (t *Transport) Stats(ctx context.Context, index string, metrics ...string) (map[string]any, error) {
	var out map[string]any
	err := t.do(ctx, db.OpStats, esapi.IndicesStatsRequest{
		Index:  []string{index},
		Metric: metrics,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Analyze runs text through an analyzer or a field's analysis chain.
func (t *Transport) Analyze(ctx context.Context, req *db.AnalyzeRequest) (*db.AnalyzeResponse, error) {
	payload := map[string]any{"text": req.Text}
	if req.Analyzer != "" {
		payload["analyzer"] = req.Analyzer
	}
	if req.Field != "" {
		payload["field"] = req.Field
	}
	body, err := jsonBody(payload)
	if err != nil {
		return nil, &db.Error{Op: db.OpAnalyze, Err: err}
	}
	var out db.AnalyzeResponse
	if err := t.do(ctx, db.OpAnalyze, esapi.IndicesAnalyzeRequest{Index: req.Index, Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
