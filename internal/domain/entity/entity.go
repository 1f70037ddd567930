// Package entity defines what the index layer needs from a relational entity.
package entity

import (
	"context"
	"reflect"
)

// Entity is an application record that can be mirrored into a search index.
type Entity interface {
	// ToDocument returns the full index representation.
	ToDocument() map[string]any
	// ChangedDocument returns only the fields modified since the entity was loaded.
	ChangedDocument() map[string]any
	// IndexKey returns the stable identifier used as the document id.
	IndexKey() string
	// IndexTypeName returns the document type the entity is indexed under.
	IndexTypeName() string
	// CanAddToIndex reports whether the entity may be written to the index.
	CanAddToIndex() bool

	SetIndexVersion(v int64)
	IndexVersion() int64
	SetIndexScore(s float64)
	IndexScore() float64
}

// Loader batch-loads entities by index key. Result order is not significant.
type Loader interface {
	Load(ctx context.Context, ids []string, with ...string) ([]Entity, error)
}

// Annotations holds the per-instance values written back by the index layer.
// Embed it to satisfy the annotation half of Entity.
type Annotations struct {
	version int64
	score   float64
}

// SetIndexVersion records the document version reported by the backend.
func (a *Annotations) SetIndexVersion(v int64) { a.version = v }

// IndexVersion returns the last recorded document version.
func (a *Annotations) IndexVersion() int64 { return a.version }

// SetIndexScore records the relevance score of the last search hit.
func (a *Annotations) SetIndexScore(s float64) { a.score = s }

// IndexScore returns the last recorded relevance score.
func (a *Annotations) IndexScore() float64 { return a.score }

// TypeName returns a printable name of the entity's dynamic type.
func TypeName(e Entity) string {
	if e == nil {
		return "<nil>"
	}
	return reflect.TypeOf(e).String()
}

// Keys returns the index keys of the given entities in order.
func Keys(es []Entity) []string {
	keys := make([]string, len(es))
	for i, e := range es {
		keys[i] = e.IndexKey()
	}
	return keys
}
