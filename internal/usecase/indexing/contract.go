package indexing

import (
	"github.com/kailas-cloud/elodex/internal/db"
)

// Backend is the part of the search backend the service drives. Backends
// that also implement db.IndexAdmin unlock the administrative operations.
type Backend interface {
	db.IndexManager
	db.Searcher
}
