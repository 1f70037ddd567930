package embedded

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/datetime/flexible"
	blevemapping "github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

const (
	typeField  = "_type"
	dateParser = "elodex_date"
	metaKey    = "_elodex_meta"
)

var dateLayouts = []any{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Search engine analysis component names and their bleve counterparts.
var (
	tokenizers = map[string]string{
		"standard":   "unicode",
		"whitespace": "whitespace",
		"keyword":    "single",
		"letter":     "letter",
	}
	tokenFilters = map[string]string{
		"lowercase":   "to_lower",
		"stop":        "stop_en",
		"porter_stem": "stemmer_porter",
		"stemmer":     "stemmer_porter",
		"unique":      "unique",
		"apostrophe":  "apostrophe",
	}
	// builtinAnalyzers maps analyzer types to tokenizer and filter chains.
	builtinAnalyzers = map[string][2]any{
		"standard":   {"unicode", []any{"to_lower", "stop_en"}},
		"simple":     {"letter", []any{"to_lower"}},
		"whitespace": {"whitespace", []any{}},
		"keyword":    {"single", []any{}},
		"english":    {"unicode", []any{"possessive_en", "to_lower", "stop_en", "stemmer_porter"}},
	}
)

// buildIndexMapping turns settings and per-type properties into a bleve
// mapping. Types without properties are mapped dynamically.
func buildIndexMapping(
	settings map[string]any, mappings map[string]mapping.Properties,
) (*blevemapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.TypeField = typeField

	err := im.AddCustomDateTimeParser(dateParser, map[string]any{
		"type":    flexible.Name,
		"layouts": dateLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("register date parser: %w", err)
	}
	im.DefaultDateTimeParser = dateParser

	if err := addAnalyzers(im, settings); err != nil {
		return nil, err
	}

	im.DefaultMapping.AddFieldMappingsAt(typeField, typeFieldMapping())
	for docType, props := range mappings {
		dm := bleve.NewDocumentMapping()
		dm.AddFieldMappingsAt(typeField, typeFieldMapping())
		addProperties(dm, props)
		im.AddDocumentMapping(docType, dm)
	}
	return im, nil
}

func typeFieldMapping() *blevemapping.FieldMapping {
	fm := bleve.NewKeywordFieldMapping()
	fm.IncludeInAll = false
	return fm
}

func addProperties(dm *blevemapping.DocumentMapping, props mapping.Properties) {
	for _, name := range props.Names() {
		f := props[name]
		if f.IsBranch() || f.Type == mapping.Object || f.Type == mapping.Nested {
			sub := bleve.NewDocumentMapping()
			addProperties(sub, f.Properties)
			dm.AddSubDocumentMapping(name, sub)
			continue
		}
		if fm := fieldMapping(f); fm != nil {
			dm.AddFieldMappingsAt(name, fm)
		}
	}
}

func fieldMapping(f mapping.Field) *blevemapping.FieldMapping {
	switch f.Type {
	case mapping.Integer, mapping.Float, mapping.Double:
		return bleve.NewNumericFieldMapping()
	case mapping.Boolean:
		return bleve.NewBooleanFieldMapping()
	case mapping.Date:
		fm := bleve.NewDateTimeFieldMapping()
		fm.DateFormat = dateParser
		return fm
	case mapping.String:
		fm := bleve.NewTextFieldMapping()
		if a, ok := f.Params["analyzer"].(string); ok && a != "" {
			fm.Analyzer = a
		}
		if idx, _ := f.Params["index"].(string); idx == "not_analyzed" {
			fm.Analyzer = "keyword"
		}
		return fm
	}
	return nil
}

// addAnalyzers registers analyzers declared under analysis.analyzer,
// either at the top level of settings or under "index".
func addAnalyzers(im *blevemapping.IndexMappingImpl, settings map[string]any) error {
	analysis, _ := settings["analysis"].(map[string]any)
	if analysis == nil {
		if index, ok := settings["index"].(map[string]any); ok {
			analysis, _ = index["analysis"].(map[string]any)
		}
	}
	analyzers, _ := analysis["analyzer"].(map[string]any)

	for name, raw := range analyzers {
		def, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("analyzer %s: expected object", name)
		}
		cfg, err := analyzerConfig(def)
		if err != nil {
			return fmt.Errorf("analyzer %s: %w", name, err)
		}
		if err := im.AddCustomAnalyzer(name, cfg); err != nil {
			return fmt.Errorf("analyzer %s: %w", name, err)
		}
	}
	return nil
}

func analyzerConfig(def map[string]any) (map[string]any, error) {
	typ, _ := def["type"].(string)
	if typ == "" {
		typ = "custom"
	}
	if typ != "custom" {
		chain, ok := builtinAnalyzers[typ]
		if !ok {
			return nil, fmt.Errorf("%w: analyzer type %q", db.ErrNotSupported, typ)
		}
		return map[string]any{"type": custom.Name, "tokenizer": chain[0], "token_filters": chain[1]}, nil
	}

	tokName, _ := def["tokenizer"].(string)
	tok, ok := tokenizers[tokName]
	if !ok {
		return nil, fmt.Errorf("%w: tokenizer %q", db.ErrNotSupported, tokName)
	}
	filters := []any{}
	for _, f := range db.Strings(def["filter"]) {
		bf, ok := tokenFilters[f]
		if !ok {
			return nil, fmt.Errorf("%w: token filter %q", db.ErrNotSupported, f)
		}
		filters = append(filters, bf)
	}
	return map[string]any{"type": custom.Name, "tokenizer": tok, "token_filters": filters}, nil
}

type meta struct {
	Settings map[string]any            `json:"settings"`
	Mappings map[string]map[string]any `json:"mappings"`
}

func (s *store) saveMeta() error {
	m := meta{Settings: s.settings, Mappings: make(map[string]map[string]any, len(s.mappings))}
	for docType, props := range s.mappings {
		m.Mappings[docType] = props.Source()
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}
	return s.idx.SetInternal([]byte(metaKey), raw)
}

func (s *store) loadMeta() error {
	raw, err := s.idx.GetInternal([]byte(metaKey))
	if err != nil {
		return fmt.Errorf("read index metadata: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode index metadata: %w", err)
	}
	if m.Settings != nil {
		s.settings = m.Settings
	}
	for docType, src := range m.Mappings {
		props, err := mapping.ParseProperties(src)
		if err != nil {
			return fmt.Errorf("decode mapping of %s: %w", docType, err)
		}
		s.mappings[docType] = props
	}
	return nil
}
