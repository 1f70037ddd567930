// Package mapping derives search index field mappings from entity metadata.
package mapping

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// FieldType is a search engine field type.
type FieldType string

// Supported field types.
const (
	Integer FieldType = "integer"
	Float   FieldType = "float"
	Double  FieldType = "double"
	String  FieldType = "string"
	Boolean FieldType = "boolean"
	Date    FieldType = "date"
	Object  FieldType = "object"
	Nested  FieldType = "nested"
)

// DefaultDateFormat is the canonical format for mapped date fields.
const DefaultDateFormat = "yyyy-MM-dd HH:mm:ss"

// Field is one node of a mapping descriptor. Relation branches carry child
// Properties; leaves carry a Type and optional Format and Params.
type Field struct {
	Type       FieldType
	Format     string
	Properties Properties
	// Params holds engine specific settings such as analyzer or index options.
	Params map[string]any
}

// Properties maps field names to their mapping.
type Properties map[string]Field

// IsBranch reports whether the field has child properties.
func (f Field) IsBranch() bool {
	return len(f.Properties) > 0
}

// Source returns the field as a plain JSON-ready map.
func (f Field) Source() map[string]any {
	out := make(map[string]any, len(f.Params)+3)
	maps.Copy(out, f.Params)
	if f.Type != "" {
		out["type"] = string(f.Type)
	}
	if f.Format != "" {
		out["format"] = f.Format
	}
	if len(f.Properties) > 0 {
		out["properties"] = f.Properties.Source()
	}
	return out
}

// MarshalJSON encodes the field in search engine mapping form.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Source())
}

// Source returns the properties as a plain JSON-ready map.
func (p Properties) Source() map[string]any {
	out := make(map[string]any, len(p))
	for name, f := range p {
		out[name] = f.Source()
	}
	return out
}

// Names returns the property names in lexical order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a copy of p with overrides deep-merged on top. Scalar
// settings of an override win; child properties and params merge key by key.
func (p Properties) Merge(overrides Properties) Properties {
	out := make(Properties, len(p)+len(overrides))
	for name, f := range p {
		out[name] = f.clone()
	}
	for name, o := range overrides {
		base, ok := out[name]
		if !ok {
			out[name] = o.clone()
			continue
		}
		out[name] = base.merge(o)
	}
	return out
}

func (f Field) merge(o Field) Field {
	merged := f.clone()
	if o.Type != "" {
		merged.Type = o.Type
	}
	if o.Format != "" {
		merged.Format = o.Format
	}
	if len(o.Params) > 0 {
		if merged.Params == nil {
			merged.Params = make(map[string]any, len(o.Params))
		}
		maps.Copy(merged.Params, o.Params)
	}
	if len(o.Properties) > 0 {
		merged.Properties = merged.Properties.Merge(o.Properties)
	}
	return merged
}

func (f Field) clone() Field {
	c := Field{Type: f.Type, Format: f.Format}
	if f.Params != nil {
		c.Params = maps.Clone(f.Params)
	}
	if f.Properties != nil {
		c.Properties = f.Properties.Merge(nil)
	}
	return c
}

// Flatten walks the descriptor and returns every leaf keyed by its dot path.
func (p Properties) Flatten() map[string]Field {
	out := make(map[string]Field)
	p.flatten("", out)
	return out
}

func (p Properties) flatten(prefix string, out map[string]Field) {
	for name, f := range p {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if f.IsBranch() {
			f.Properties.flatten(path, out)
			continue
		}
		out[path] = f
	}
}

// ParseProperties reads properties from their JSON-ready form, the inverse
// of Properties.Source.
func ParseProperties(src map[string]any) (Properties, error) {
	out := make(Properties, len(src))
	for name, raw := range src {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("property %s: expected object, got %T", name, raw)
		}
		f := Field{}
		for key, v := range m {
			switch key {
			case "type":
				s, _ := v.(string)
				f.Type = FieldType(s)
			case "format":
				f.Format, _ = v.(string)
			case "properties":
				children, ok := v.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("property %s: properties must be an object", name)
				}
				props, err := ParseProperties(children)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				f.Properties = props
			default:
				if f.Params == nil {
					f.Params = make(map[string]any)
				}
				f.Params[key] = v
			}
		}
		out[name] = f
	}
	return out, nil
}
