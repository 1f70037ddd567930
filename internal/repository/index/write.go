package index

import (
	"context"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// Add creates the entity's document. It fails with status 409 if the
// document already exists.
func (r *Repository) Add(ctx context.Context, e entity.Entity) (*db.WriteResponse, error) {
	if err := r.checkAddable(e); err != nil {
		return nil, err
	}
	resp, err := r.transport.Create(ctx, r.documentRequest(e.IndexKey(), e.ToDocument()))
	if err != nil {
		return nil, err
	}
	e.SetIndexVersion(resp.Version)
	return resp, nil
}

// Update merges the entity's changed fields into its document.
func (r *Repository) Update(ctx context.Context, e entity.Entity) (*db.WriteResponse, error) {
	if err := r.checkAddable(e); err != nil {
		return nil, err
	}
	changed := e.ChangedDocument()
	if len(changed) == 0 {
		return nil, domain.ErrEmptyChangeSet
	}
	resp, err := r.transport.Update(ctx, r.documentRequest(e.IndexKey(), changed))
	if err != nil {
		return nil, err
	}
	e.SetIndexVersion(resp.Version)
	return resp, nil
}

// Save creates or overwrites the entity's document.
func (r *Repository) Save(ctx context.Context, e entity.Entity) (*db.WriteResponse, error) {
	if err := r.checkAddable(e); err != nil {
		return nil, err
	}
	resp, err := r.transport.Index(ctx, r.documentRequest(e.IndexKey(), e.ToDocument()))
	if err != nil {
		return nil, err
	}
	e.SetIndexVersion(resp.Version)
	return resp, nil
}

// Remove deletes the entity's document.
func (r *Repository) Remove(ctx context.Context, e entity.Entity) (*db.WriteResponse, error) {
	if err := r.checkType(e); err != nil {
		return nil, err
	}
	resp, err := r.transport.Delete(ctx, r.documentRequest(e.IndexKey(), nil))
	if err != nil {
		return nil, err
	}
	e.SetIndexVersion(resp.Version)
	return resp, nil
}
