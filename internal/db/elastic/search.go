package elastic

import (
	"context"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/kailas-cloud/elodex/internal/db"
)

// Search runs a structured search. Scroll opens a cursor.
func (t *Transport) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error) {
	body, err := jsonBody(req.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	var out db.SearchResponse
	err = t.do(ctx, db.OpSearch, esapi.SearchRequest{
		Index:          []string{req.Index},
		DocumentType:   req.Types,
		Body:           body,
		Version:        boolPtr(req.Version),
		Scroll:         req.Scroll,
		TrackTotalHits: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Count returns the number of documents matching the query in Body.
func (t *Transport) Count(ctx context.Context, req *db.CountRequest) (*db.CountResponse, error) {
	esReq := esapi.CountRequest{
		Index:        []string{req.Index},
		DocumentType: req.Types,
	}
	if len(req.Body) > 0 {
		body, err := jsonBody(req.Body)
		if err != nil {
			return nil, &db.Error{Op: db.OpCount, Err: err}
		}
		esReq.Body = body
	}
	var out db.CountResponse
	if err := t.do(ctx, db.OpCount, esReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scroll fetches the next page of a cursor.
func (t *Transport) Scroll(ctx context.Context, req *db.ScrollRequest) (*db.SearchResponse, error) {
	params := map[string]any{"scroll_id": req.ScrollID}
	if req.Scroll > 0 {
		params["scroll"] = timeValue(req.Scroll)
	}
	body, err := jsonBody(params)
	if err != nil {
		return nil, &db.Error{Op: db.OpScroll, Err: err}
	}
	var out db.SearchResponse
	if err := t.do(ctx, db.OpScroll, esapi.ScrollRequest{Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// timeValue renders d in the unit syntax the cluster accepts, matching the
// query string encoding esapi uses for durations.
func timeValue(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

// ClearScroll releases a cursor.
func (t *Transport) ClearScroll(ctx context.Context, scrollID string) error {
	return t.do(ctx, db.OpClearScroll, esapi.ClearScrollRequest{ScrollID: []string{scrollID}}, nil)
}
