package model

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// Entity is the pointer form of a gorm model that is also an index entity.
type Entity[T any] interface {
	*T
	entity.Entity
}

// Loader loads gorm models of type T by their key column.
type Loader[T any, P Entity[T]] struct {
	db  *gorm.DB
	key string
}

// NewLoader creates a loader matching ids against keyColumn.
func NewLoader[T any, P Entity[T]](db *gorm.DB, keyColumn string) *Loader[T, P] {
	return &Loader[T, P]{db: db, key: keyColumn}
}

// Load fetches the models with the given keys, preloading the relations
// named by dot-separated snake_case paths such as "author.profile".
func (l *Loader[T, P]) Load(ctx context.Context, ids []string, with ...string) ([]entity.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := l.db.WithContext(ctx)
	for _, path := range with {
		q = q.Preload(preloadName(path))
	}

	var rows []T
	if err := q.Where(inKeys(l.key, ids)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %d entities: %w", len(ids), err)
	}
	out := make([]entity.Entity, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}

func inKeys(column string, ids []string) clause.IN {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return clause.IN{Column: clause.Column{Name: column}, Values: values}
}

// preloadName turns "order_items.product" into "OrderItems.Product".
func preloadName(path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		var b strings.Builder
		for _, word := range strings.Split(p, "_") {
			if word == "" {
				continue
			}
			b.WriteString(strings.ToUpper(word[:1]))
			b.WriteString(word[1:])
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ".")
}
