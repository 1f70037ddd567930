package elodex

import (
	"context"

	"gorm.io/gorm"

	"github.com/kailas-cloud/elodex/internal/repository/model"
	indexsyncuc "github.com/kailas-cloud/elodex/internal/usecase/indexsync"
)

// Table identifies a database table seeded as generic records.
type Table = model.Table

// SeedReport summarizes a seeding run.
type SeedReport = indexsyncuc.SeedReport

// GormLoader returns a Loader that hydrates search results as gorm models
// of type T, matching document ids against keyColumn. Relation paths passed
// to Result.Items are preloaded.
func GormLoader[T any, P interface {
	*T
	Entity
}](db *gorm.DB, keyColumn string) Loader {
	return model.NewLoader[T, P](db, keyColumn)
}

// Seed indexes every row of tbl into the default index in batches of batch
// rows. Row failures are collected in the report and do not stop the run.
func (c *Client) Seed(ctx context.Context, db *gorm.DB, tbl Table, batch int) (SeedReport, error) {
	return c.sync.Seed(ctx, model.NewTables(db), tbl, batch)
}
