package elodex

import (
	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
	"github.com/kailas-cloud/elodex/internal/domain/search/query"
	"github.com/kailas-cloud/elodex/internal/domain/search/result"
	"github.com/kailas-cloud/elodex/internal/repository/index"
)

// Entities.
type (
	// Entity is an application record mirrored into the index.
	Entity = entity.Entity
	// Loader batch-loads entities by index key.
	Loader = entity.Loader
	// Annotations implements the version and score half of Entity.
	Annotations = entity.Annotations
)

// Mapping.
type (
	Properties = mapping.Properties
	Field      = mapping.Field
	FieldType  = mapping.FieldType
	Model      = mapping.Model
)

// Queries and results.
type (
	Query    = query.Search
	Bounds   = query.Bounds
	Params   = query.Params
	Order    = query.Order
	Occur    = query.Occur
	Result   = result.Result
	Page     = result.Page
	Document = result.Document
	PageFunc = index.PageFunc
)

// Repository reads and writes the documents of one entity type.
type Repository = index.Repository

// Write reports.
type (
	WriteResponse  = db.WriteResponse
	BulkResponse   = db.BulkResponse
	OperationError = bulk.OperationError
	MultiGetError  = bulk.MultiGetError
	FailedItem     = bulk.FailedItem
	ItemError      = bulk.ItemError
)

// Sort orders and boolean slots.
const (
	Asc     = query.Asc
	Desc    = query.Desc
	Must    = query.Must
	Should  = query.Should
	MustNot = query.MustNot
	Filter  = query.Filter
)

// NewQuery starts an empty search.
func NewQuery() *Query { return query.New() }

// Errors.
var (
	ErrValidation         = domain.ErrValidation
	ErrEntityTypeMismatch = domain.ErrEntityTypeMismatch
	ErrNotAddable         = domain.ErrNotAddable
	ErrEmptyChangeSet     = domain.ErrEmptyChangeSet
	ErrNoLoader           = domain.ErrNoLoader
	ErrStopScroll         = index.ErrStopScroll
	ErrIndexNotFound      = db.ErrIndexNotFound
	ErrIndexExists        = db.ErrIndexExists
	ErrDocumentNotFound   = db.ErrDocumentNotFound
	ErrNotSupported       = db.ErrNotSupported
)
