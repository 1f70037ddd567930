package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("blog:post").
		Prefix("blog:post:").
		Tag("category").
		Numeric("price").
		MustBuild()

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name != "blog:post" {
		t.Errorf("name = %q, want blog:post", idx.Name)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "price" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want price NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_JSONPathsWithAliases(t *testing.T) {
	idx := NewIndex("blog:post").
		OnJSON().
		Prefix("blog:post:").
		TextAs("$._source.title", "title").
		NumericAs("$._source.views", "views").Sortable().
		TagAs("$._source.author.name", "author_name").
		MustBuild()

	if idx.StorageType != StorageJSON {
		t.Errorf("storage = %q, want JSON", idx.StorageType)
	}
	f, ok := idx.Field("views")
	if !ok {
		t.Fatal("views not found by alias")
	}
	if !f.Sortable || f.Type != IndexFieldNumeric {
		t.Errorf("views = %+v", f)
	}
	if _, ok := idx.Field("$._source.title"); ok {
		t.Error("aliased field found by path")
	}
	if idx.Fields[0].Sortable {
		t.Error("Sortable applied to the wrong field")
	}
}

func TestIndexBuilder_SortableOnEmpty(t *testing.T) {
	b := NewIndex("x").Sortable()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error for no fields")
	}
}

func TestIndexBuilder_TagOptions(t *testing.T) {
	idx := NewIndex("tag-idx").
		Prefix("t:").
		TagWithOpts("tags", "|", true).
		MustBuild()

	f := idx.Fields[0]
	if f.TagSeparator != "|" {
		t.Errorf("separator = %q, want |", f.TagSeparator)
	}
	if !f.TagCaseSensitive {
		t.Error("expected TagCaseSensitive=true")
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Tag("x").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Tag("x").Build()
			},
			wantErr: "invalid characters",
		},
		{
			name: "duplicate alias",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").TagAs("$.a", "x").NumericAs("$.b", "x").Build()
			},
			wantErr: "duplicate field name: x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := NewIndex("my-idx").
		OnJSON().
		Prefix("doc:").
		TagAs("$._source.cat", "cat").Sortable().
		MustBuild()

	want := "FT.CREATE my-idx ON JSON PREFIX doc: SCHEMA $._source.cat AS cat TAG SORTABLE"
	if s := idx.String(); s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
}
