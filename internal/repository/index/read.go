package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
	"github.com/kailas-cloud/elodex/internal/domain/search/query"
	"github.com/kailas-cloud/elodex/internal/domain/search/result"
)

// Search runs q against the repository's index and type. Hit versions are
// always requested.
func (r *Repository) Search(ctx context.Context, q *query.Search) (*result.Result, error) {
	req, err := r.searchRequest(q)
	if err != nil {
		return nil, err
	}
	resp, err := r.transport.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.New(resp, r.loader), nil
}

// Count returns the number of documents matching q.
func (r *Repository) Count(ctx context.Context, q *query.Search) (int64, error) {
	if q == nil {
		q = query.New()
	}
	if err := q.Err(); err != nil {
		return 0, err
	}
	body := map[string]any{}
	if qb, ok := q.Body()["query"]; ok {
		body["query"] = qb
	}
	resp, err := r.transport.Count(ctx, &db.CountRequest{
		Index: r.index,
		Types: []string{r.docType},
		Body:  body,
	})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// All returns a page of every document. Negative limit or offset means unset.
func (r *Repository) All(ctx context.Context, limit, offset int) (*result.Result, error) {
	return r.Search(ctx, page(query.New().MatchAll(), limit, offset))
}

// SearchAllFields matches term against every field.
func (r *Repository) SearchAllFields(ctx context.Context, term string, limit, offset int) (*result.Result, error) {
	return r.Search(ctx, page(query.New().MultiMatch([]string{"*"}, term), limit, offset))
}

// Paginate returns page number pageNum (1-based) of perPage hits.
func (r *Repository) Paginate(ctx context.Context, q *query.Search, perPage, pageNum int) (*result.Page, error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("%w: per page must be positive", domain.ErrValidation)
	}
	if pageNum < 1 {
		pageNum = 1
	}
	if q == nil {
		q = query.New()
	}
	res, err := r.Search(ctx, q.Limit(perPage).Offset((pageNum-1)*perPage))
	if err != nil {
		return nil, err
	}
	return result.NewPage(res, perPage, pageNum), nil
}

// GetDocument fetches the entity's document. Fields restricts the source.
func (r *Repository) GetDocument(ctx context.Context, e entity.Entity, fields ...string) (*db.GetResponse, error) {
	if err := r.checkType(e); err != nil {
		return nil, err
	}
	resp, err := r.transport.Get(ctx, &db.GetRequest{
		Index:  r.index,
		Type:   r.docType,
		ID:     e.IndexKey(),
		Source: fields,
	})
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, e.IndexKey())
		}
		return nil, err
	}
	return resp, nil
}

// GetDocuments fetches the documents of es in one request. Missing or failed
// documents are reported as *bulk.MultiGetError together with the response.
func (r *Repository) GetDocuments(ctx context.Context, es []entity.Entity, fields ...string) (*db.MultiGetResponse, error) {
	if len(es) == 0 {
		return &db.MultiGetResponse{}, nil
	}
	for _, e := range es {
		if err := r.checkType(e); err != nil {
			return nil, err
		}
	}
	resp, err := r.transport.MultiGet(ctx, &db.MultiGetRequest{
		Index:  r.index,
		Type:   r.docType,
		IDs:    entity.Keys(es),
		Source: fields,
	})
	if err != nil {
		return nil, err
	}

	lookups := make([]bulk.Lookup, len(resp.Docs))
	for i, d := range resp.Docs {
		lookups[i] = bulk.Lookup{ID: d.ID, Found: d.Found, Error: d.Error}
	}
	if mgErr := bulk.CorrelateMultiGet(es, lookups); mgErr != nil {
		return resp, mgErr
	}
	return resp, nil
}

func (r *Repository) searchRequest(q *query.Search) (*db.SearchRequest, error) {
	if q == nil {
		q = query.New()
	}
	if err := q.Err(); err != nil {
		return nil, err
	}
	return &db.SearchRequest{
		Index:   r.index,
		Types:   []string{r.docType},
		Body:    q.Body(),
		Version: true,
		Scroll:  q.ScrollDuration(),
	}, nil
}

func page(q *query.Search, limit, offset int) *query.Search {
	if limit >= 0 {
		q.Limit(limit)
	}
	if offset >= 0 {
		q.Offset(offset)
	}
	return q
}
