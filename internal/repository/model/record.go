package model

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// dateLayout renders time columns in the default mapped date format.
const dateLayout = "2006-01-02 15:04:05"

// Record is a table row indexed without a dedicated Go model.
type Record struct {
	entity.Annotations

	docType  string
	key      string
	values   map[string]any
	original map[string]any
}

var _ entity.Entity = (*Record)(nil)

// NewRecord wraps a row. key names the column used as the document id.
func NewRecord(docType, key string, row map[string]any) *Record {
	return &Record{docType: docType, key: key, values: row, original: maps.Clone(row)}
}

// Set changes a column value.
func (r *Record) Set(column string, v any) { r.values[column] = v }

// Get returns a column value.
func (r *Record) Get(column string) any { return r.values[column] }

// ToDocument returns every column.
func (r *Record) ToDocument() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = documentValue(v)
	}
	return out
}

// ChangedDocument returns the columns set since the row was loaded.
func (r *Record) ChangedDocument() map[string]any {
	out := map[string]any{}
	for k, v := range r.values {
		if old, ok := r.original[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		out[k] = documentValue(v)
	}
	return out
}

// IndexKey returns the key column value.
func (r *Record) IndexKey() string { return fmt.Sprint(documentValue(r.values[r.key])) }

// IndexTypeName returns the document type given at construction.
func (r *Record) IndexTypeName() string { return r.docType }

// CanAddToIndex rejects rows without a key.
func (r *Record) CanAddToIndex() bool {
	v, ok := r.values[r.key]
	return ok && v != nil
}

func documentValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(dateLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(dateLayout)
	case []byte:
		return string(t)
	}
	return v
}
