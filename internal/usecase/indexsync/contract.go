package indexsync

import (
	"context"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
	"github.com/kailas-cloud/elodex/internal/repository/model"
)

// Writer mirrors entities of one type into the index.
type Writer interface {
	Save(ctx context.Context, e entity.Entity) (*db.WriteResponse, error)
	Remove(ctx context.Context, e entity.Entity) (*db.WriteResponse, error)
	SaveBatch(ctx context.Context, es []entity.Entity) (*db.BulkResponse, error)
}

// Writers resolves the writer for an entity's type.
type Writers interface {
	For(e entity.Entity) (Writer, error)
}

// Source iterates the rows of a table in batches.
type Source interface {
	Each(ctx context.Context, tbl model.Table, batch int, fn func([]entity.Entity) error) error
}
