package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

// Transport is the search backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow interfaces below
type Transport interface {
	Pinger
	DocumentWriter
	BulkWriter
	DocumentReader
	Searcher
	Scroller
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentWriter writes single documents.
type DocumentWriter interface {
	// Create fails with status 409 when the document exists.
	Create(ctx context.Context, req *DocumentRequest) (*WriteResponse, error)
	// Index creates or overwrites the document.
	Index(ctx context.Context, req *DocumentRequest) (*WriteResponse, error)
	// Update merges req.Body into the existing document.
	Update(ctx context.Context, req *DocumentRequest) (*WriteResponse, error)
	Delete(ctx context.Context, req *DocumentRequest) (*WriteResponse, error)
}

// BulkWriter sends many write actions in one round trip.
type BulkWriter interface {
	Bulk(ctx context.Context, req *BulkRequest) (*BulkResponse, error)
}

// DocumentReader fetches documents by id.
type DocumentReader interface {
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)
	MultiGet(ctx context.Context, req *MultiGetRequest) (*MultiGetResponse, error)
}

// Searcher runs structured search requests.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
	Count(ctx context.Context, req *CountRequest) (*CountResponse, error)
}

// Scroller pages through a result set with a server-side cursor.
type Scroller interface {
	Scroll(ctx context.Context, req *ScrollRequest) (*SearchResponse, error)
	ClearScroll(ctx context.Context, scrollID string) error
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, name string, body map[string]any) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, names ...string) (bool, error)
	PutMapping(ctx context.Context, index, docType string, props mapping.Properties) error
}

// IndexAdmin is implemented by backends with administrative index APIs.
// Consumers detect it with a type assertion.
type IndexAdmin interface {
	GetMapping(ctx context.Context, index, docType string) (map[string]any, error)
	OpenIndex(ctx context.Context, name string) error
	CloseIndex(ctx context.Context, name string) error
	GetSettings(ctx context.Context, index string) (map[string]any, error)
	PutSettings(ctx context.Context, index string, settings map[string]any) error
	Stats(ctx context.Context, index string, metrics ...string) (map[string]any, error)
	Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
}
