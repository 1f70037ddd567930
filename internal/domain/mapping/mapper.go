package mapping

import (
	"strings"
	"unicode"
)

// Model is the mapping-relevant metadata of an entity type. Relations may
// reference each other cyclically; traversal only follows requested paths.
type Model struct {
	Casts     map[string]string
	Dates     []string
	Visible   []string
	Hidden    []string
	Relations map[string]*Model
	Custom    Properties
}

var castTypes = map[string]FieldType{
	"int":        Integer,
	"integer":    Integer,
	"real":       Float,
	"float":      Float,
	"double":     Double,
	"string":     String,
	"bool":       Boolean,
	"boolean":    Boolean,
	"date":       Date,
	"datetime":   Date,
	"timestamp":  Date,
	"array":      Object,
	"collection": Object,
	"object":     Object,
	"json":       Object,
}

// Mapper builds Properties from Model metadata.
type Mapper struct {
	relationType FieldType
	snakeCase    bool
	dateFormat   string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithRelationType selects how relation branches are mapped (Nested or Object).
func WithRelationType(t FieldType) Option {
	return func(m *Mapper) {
		if t == Nested || t == Object {
			m.relationType = t
		}
	}
}

// WithSnakeCaseRelations toggles snake_case keys for relation branches.
func WithSnakeCaseRelations(on bool) Option {
	return func(m *Mapper) { m.snakeCase = on }
}

// WithDateFormat overrides the format attached to date fields.
func WithDateFormat(format string) Option {
	return func(m *Mapper) {
		if format != "" {
			m.dateFormat = format
		}
	}
}

// NewMapper creates a Mapper. Relations default to nested with snake_case keys.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		relationType: Nested,
		snakeCase:    true,
		dateFormat:   DefaultDateFormat,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map derives the descriptor for model, descending into the relations named
// by the dot-separated paths. Unknown relation names are skipped.
func (m *Mapper) Map(model *Model, relations ...string) Properties {
	if model == nil {
		return Properties{}
	}

	out := m.mapRelations(model, relations)
	for name, f := range m.mapAttributes(model) {
		out[name] = f
	}
	if len(model.Custom) > 0 {
		out = out.Merge(model.Custom)
	}
	return out
}

func (m *Mapper) mapAttributes(model *Model) Properties {
	out := make(Properties, len(model.Dates)+len(model.Casts))
	visible := visibility(model)

	for _, name := range model.Dates {
		if visible(name) {
			out[name] = Field{Type: Date, Format: m.dateFormat}
		}
	}
	for name, cast := range model.Casts {
		if !visible(name) {
			continue
		}
		t, ok := castTypes[strings.ToLower(cast)]
		if !ok {
			continue
		}
		f := Field{Type: t}
		if t == Date {
			f.Format = m.dateFormat
		}
		out[name] = f
	}
	return out
}

func (m *Mapper) mapRelations(model *Model, paths []string) Properties {
	out := make(Properties)
	heads, children := groupPaths(paths)
	for _, head := range heads {
		related, ok := model.Relations[head]
		if !ok || related == nil {
			continue
		}
		key := head
		if m.snakeCase {
			key = snakeCase(head)
		}
		out[key] = Field{
			Type:       m.relationType,
			Properties: m.Map(related, children[head]...),
		}
	}
	return out
}

// groupPaths splits each path on its first dot and merges the remainders of
// equal heads. Heads keep their first-seen order.
func groupPaths(paths []string) ([]string, map[string][]string) {
	var heads []string
	children := make(map[string][]string)
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		head, rest, _ := strings.Cut(p, ".")
		if _, seen := children[head]; !seen {
			heads = append(heads, head)
			children[head] = nil
		}
		if rest != "" {
			children[head] = append(children[head], rest)
		}
	}
	return heads, children
}

func visibility(model *Model) func(string) bool {
	if len(model.Visible) > 0 {
		allowed := toSet(model.Visible)
		return func(name string) bool { return allowed[name] }
	}
	hidden := toSet(model.Hidden)
	return func(name string) bool { return !hidden[name] }
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
