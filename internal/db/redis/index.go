package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

// CreateIndex registers an index. The body is kept as index metadata; Redis
// has no per-index settings to apply.
func (t *Transport) CreateIndex(ctx context.Context, name string, body map[string]any) error {
	if !db.IsValidIdentifier(name) {
		return &db.Error{Op: db.OpCreateIndex, Err: fmt.Errorf("invalid index name %q", name)}
	}
	if body == nil {
		body = map[string]any{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: fmt.Errorf("marshal body: %w", err)}
	}

	cmd := t.b().Set().Key(metaKey(name)).Value(string(data)).Nx().Build()
	if err := t.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether every named index is registered.
func (t *Transport) IndexExists(ctx context.Context, names ...string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = metaKey(n)
	}
	n, err := t.do(ctx, t.b().Exists().Key(keys...).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	return int(n) == len(names), nil
}

// DeleteIndex drops every FT index of the index together with its
// documents, then removes any remaining keys and the metadata.
func (t *Transport) DeleteIndex(ctx context.Context, name string) error {
	names, err := t.do(ctx, t.b().Arbitrary("FT._LIST").Build()).AsStrSlice()
	if err != nil {
		return &db.Error{Op: db.OpDeleteIndex, Err: err}
	}
	prefix := name + ":"
	dropped := 0
	for _, ft := range names {
		if len(ft) <= len(prefix) || ft[:len(prefix)] != prefix {
			continue
		}
		cmd := t.b().Arbitrary("FT.DROPINDEX").Args(ft, "DD").Build()
		if err := t.do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "unknown index name") {
			return &db.Error{Op: db.OpDeleteIndex, Err: fmt.Errorf("drop %s: %w", ft, err)}
		}
		dropped++
	}

	keys, err := t.scan(ctx, prefix+"*")
	if err != nil {
		return &db.Error{Op: db.OpDeleteIndex, Err: err}
	}
	keys = append(keys, metaKey(name))
	removed, err := t.do(ctx, t.b().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpDeleteIndex, Err: err}
	}
	if dropped == 0 && removed == 0 {
		return &db.Error{Op: db.OpDeleteIndex, Err: db.ErrIndexNotFound}
	}
	return nil
}

// scan returns all keys matching pattern.
func (t *Transport) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := t.b().Scan().Cursor(cursor).Match(pattern).Count(500).Build()
		entry, err := t.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

// PutMapping (re)creates the FT index of docType from props. Existing
// documents are kept and reindexed by the server.
func (t *Transport) PutMapping(ctx context.Context, index, docType string, props mapping.Properties) error {
	ok, err := t.IndexExists(ctx, index)
	if err != nil {
		return &db.Error{Op: db.OpPutMapping, Err: err}
	}
	if !ok {
		return &db.Error{Op: db.OpPutMapping, Err: db.ErrIndexNotFound}
	}

	def, err := mappingDefinition(index, docType, props)
	if err != nil {
		return &db.Error{Op: db.OpPutMapping, Err: err}
	}
	args, err := buildCreateArgs(def)
	if err != nil {
		return &db.Error{Op: db.OpPutMapping, Err: err}
	}

	drop := t.b().Arbitrary("FT.DROPINDEX").Args(def.Name).Build()
	if err := t.do(ctx, drop).Error(); err != nil && !isRedisErr(err, "unknown index name") {
		return &db.Error{Op: db.OpPutMapping, Err: err}
	}
	create := t.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := t.do(ctx, create).Error(); err != nil {
		return &db.Error{Op: db.OpPutMapping, Err: err}
	}
	return nil
}

// mappingDefinition translates a mapping into an FT schema over the JSON
// envelope. Nested paths are flattened with underscores.
func mappingDefinition(index, docType string, props mapping.Properties) (*db.IndexDefinition, error) {
	ft := searchIndex(index, docType)
	b := db.NewIndex(ft).OnJSON().Prefix(ft+":").TagAs("$._type", "_type")
	addFields(b, props, "$._source", "")
	return b.Build()
}

func addFields(b *db.IndexBuilder, props mapping.Properties, jsonPrefix, aliasPrefix string) {
	for _, name := range props.Names() {
		f := props[name]
		path := jsonPrefix + "." + name
		alias := name
		if aliasPrefix != "" {
			alias = aliasPrefix + "_" + name
		}

		if f.IsBranch() {
			if f.Type == mapping.Nested {
				path += "[*]"
			}
			addFields(b, f.Properties, path, alias)
			continue
		}

		switch f.Type {
		case mapping.Integer, mapping.Float, mapping.Double:
			b.NumericAs(path, alias).Sortable()
		case mapping.String:
			b.TextAs(path, alias)
		case mapping.Boolean, mapping.Date:
			b.TagAs(path, alias).Sortable()
		}
	}
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{f.Name}

	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")

	case db.IndexFieldText:
		args = append(args, "TEXT")

	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}

	default:
		return nil, errors.New("unknown field type")
	}

	if f.Sortable {
		args = append(args, "SORTABLE")
	}

	return args, nil
}
