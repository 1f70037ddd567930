package elodex

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

const tagKey = "elodex"

var timeType = reflect.TypeOf(time.Time{})

// ModelOf derives mapping metadata from the elodex struct tags of T.
//
//	type Post struct {
//		ID        int       `elodex:"id"`
//		Title     string    `elodex:"title"`
//		Secret    string    `elodex:"secret,hidden"`
//		Views     int64     `elodex:"views,integer"`
//		Published time.Time `elodex:"published_at"`
//		Author    *User     `elodex:"author,relation"`
//	}
//
// The first tag part names the document field. An optional modifier sets the
// cast (integer, float, double, string, boolean, date, object), hides the
// field, or marks a relation whose type is described recursively. Without a
// modifier the cast follows the Go type. Untagged fields and fields tagged
// "-" are ignored.
func ModelOf[T any]() (*Model, error) {
	var zero T
	return modelOf(reflect.TypeOf(zero), map[reflect.Type]*mapping.Model{})
}

func modelOf(t reflect.Type, seen map[reflect.Type]*mapping.Model) (*mapping.Model, error) {
	t = structType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("elodex: type %v is not a struct", t)
	}
	if m, ok := seen[t]; ok {
		return m, nil
	}

	m := &mapping.Model{Casts: map[string]string{}}
	seen[t] = m

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(m, f, tag, seen); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// applyTag processes a single struct field's elodex tag.
func applyTag(m *mapping.Model, f reflect.StructField, tag string, seen map[reflect.Type]*mapping.Model) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		return fmt.Errorf("elodex: empty field name in tag of %s", f.Name)
	}

	switch modifier {
	case "relation":
		related, err := modelOf(f.Type, seen)
		if err != nil {
			return fmt.Errorf("elodex: relation %s: %w", f.Name, err)
		}
		if m.Relations == nil {
			m.Relations = map[string]*mapping.Model{}
		}
		m.Relations[name] = related
	case "hidden":
		m.Hidden = append(m.Hidden, name)
	case "date":
		m.Dates = append(m.Dates, name)
	case "integer", "float", "double", "string", "boolean", "object":
		m.Casts[name] = modifier
	case "":
		switch cast := castOf(f.Type); cast {
		case "":
		case "date":
			m.Dates = append(m.Dates, name)
		default:
			m.Casts[name] = cast
		}
	default:
		return fmt.Errorf("elodex: unknown modifier %q on field %s", modifier, f.Name)
	}
	return nil
}

// castOf infers the mapping cast of a Go type.
func castOf(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "date"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32:
		return "float"
	case reflect.Float64:
		return "double"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return ""
	}
}

func structType(t reflect.Type) reflect.Type {
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	return t
}
