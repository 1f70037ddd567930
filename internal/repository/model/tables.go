package model

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kailas-cloud/elodex/internal/domain/entity"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

// Tables reads arbitrary tables as Records.
type Tables struct {
	db *gorm.DB
}

// NewTables creates a table reader.
func NewTables(db *gorm.DB) *Tables {
	return &Tables{db: db}
}

// Table identifies a table and how its rows become documents.
type Table struct {
	Name string
	Key  string
	Type string
}

// Each calls fn with consecutive batches of rows ordered by key. It stops
// at the first error.
func (t *Tables) Each(ctx context.Context, tbl Table, batch int, fn func([]entity.Entity) error) error {
	if batch <= 0 {
		batch = 500
	}
	for offset := 0; ; offset += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rows []map[string]any
		err := t.db.WithContext(ctx).Table(tbl.Name).
			Order(tbl.Key).Limit(batch).Offset(offset).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("read %s at %d: %w", tbl.Name, offset, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(records(tbl, rows)); err != nil {
			return err
		}
		if len(rows) < batch {
			return nil
		}
	}
}

// Loader returns an entity.Loader over the rows of tbl.
func (t *Tables) Loader(tbl Table) entity.Loader {
	return &tableLoader{db: t.db, tbl: tbl}
}

// Describe derives mapping metadata from the column types of tbl.
func (t *Tables) Describe(tbl Table) (*mapping.Model, error) {
	cols, err := t.db.Migrator().ColumnTypes(tbl.Name)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", tbl.Name, err)
	}
	m := &mapping.Model{Casts: make(map[string]string, len(cols))}
	for _, c := range cols {
		cast := castOf(c.DatabaseTypeName())
		if cast == "" {
			continue
		}
		m.Casts[c.Name()] = cast
	}
	return m, nil
}

// castOf maps SQL column types to mapping casts.
func castOf(sqlType string) string {
	s := strings.ToLower(sqlType)
	switch {
	case strings.Contains(s, "bool"):
		return "boolean"
	case strings.Contains(s, "int"):
		return "integer"
	case strings.Contains(s, "double"):
		return "double"
	case strings.Contains(s, "real"), strings.Contains(s, "float"),
		strings.Contains(s, "numeric"), strings.Contains(s, "decimal"):
		return "float"
	case strings.Contains(s, "date"), strings.Contains(s, "time"):
		return "datetime"
	case strings.Contains(s, "char"), strings.Contains(s, "text"), strings.Contains(s, "clob"):
		return "string"
	case strings.Contains(s, "json"):
		return "json"
	}
	return ""
}

func records(tbl Table, rows []map[string]any) []entity.Entity {
	out := make([]entity.Entity, len(rows))
	for i, row := range rows {
		out[i] = NewRecord(tbl.Type, tbl.Key, row)
	}
	return out
}

type tableLoader struct {
	db  *gorm.DB
	tbl Table
}

// Load fetches rows by key. Relations do not apply to plain rows.
func (l *tableLoader) Load(ctx context.Context, ids []string, _ ...string) ([]entity.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []map[string]any
	err := l.db.WithContext(ctx).Table(l.tbl.Name).Where(inKeys(l.tbl.Key, ids)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load %d rows of %s: %w", len(ids), l.tbl.Name, err)
	}
	return records(l.tbl, rows), nil
}
