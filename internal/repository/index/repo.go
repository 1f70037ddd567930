// Package index implements the entity-to-index repository: single and bulk
// writes with failure correlation, searches and scrolling, all pinned to one
// entity type and one (index, type) route.
package index

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// transport is the consumer interface for the search backend (ISP).
type transport interface {
	db.DocumentWriter
	db.BulkWriter
	db.DocumentReader
	db.Searcher
	db.Scroller
}

// Repository reads and writes the documents of one entity type.
// It is safe for concurrent use.
type Repository struct {
	transport  transport
	index      string
	docType    string
	entityType reflect.Type
	refresh    atomic.Bool
	loader     entity.Loader
	logger     *zap.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithRefresh makes every write request an immediate index refresh.
func WithRefresh(on bool) Option {
	return func(r *Repository) { r.refresh.Store(on) }
}

// WithLoader sets the entity store used to hydrate search results.
func WithLoader(l entity.Loader) Option {
	return func(r *Repository) { r.loader = l }
}

// WithLogger sets the logger for partial failure reports.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a repository pinned to the dynamic type of prototype and to
// the document type the prototype reports.
func New(t transport, prototype entity.Entity, indexName string, opts ...Option) (*Repository, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	if prototype == nil {
		return nil, errors.New("entity prototype is required")
	}
	if indexName == "" {
		return nil, errors.New("index name is required")
	}
	docType := prototype.IndexTypeName()
	if docType == "" {
		return nil, errors.New("entity type name is required")
	}

	r := &Repository{
		transport:  t,
		index:      indexName,
		docType:    docType,
		entityType: reflect.TypeOf(prototype),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Index returns the index name.
func (r *Repository) Index() string { return r.index }

// Type returns the document type name.
func (r *Repository) Type() string { return r.docType }

// EntityType returns the pinned entity type.
func (r *Repository) EntityType() reflect.Type { return r.entityType }

// Refresh reports whether writes force an index refresh.
func (r *Repository) Refresh() bool { return r.refresh.Load() }

// SetRefresh changes the refresh policy for subsequent writes.
func (r *Repository) SetRefresh(on bool) { r.refresh.Store(on) }

func (r *Repository) checkType(e entity.Entity) error {
	if e == nil || reflect.TypeOf(e) != r.entityType {
		return domain.NewEntityTypeError(r.entityType.String(), entity.TypeName(e))
	}
	return nil
}

func (r *Repository) checkAddable(e entity.Entity) error {
	if err := r.checkType(e); err != nil {
		return err
	}
	if !e.CanAddToIndex() {
		return domain.ErrNotAddable
	}
	return nil
}

func (r *Repository) documentRequest(id string, body map[string]any) *db.DocumentRequest {
	return &db.DocumentRequest{
		Index:   r.index,
		Type:    r.docType,
		ID:      id,
		Body:    body,
		Refresh: r.Refresh(),
	}
}

// contextErr returns the context error, if the caller has already given up.
func contextErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
