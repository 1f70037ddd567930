package elodex

import (
	"context"

	"github.com/kailas-cloud/elodex/internal/db"
	indexinguc "github.com/kailas-cloud/elodex/internal/usecase/indexing"
)

// Token is one analyzer output token.
type Token = db.Token

// Suggestion is one term suggester entry.
type Suggestion = db.Suggestion

// IndexService manages indexes, their settings and mappings.
type IndexService struct {
	svc *indexinguc.Service
}

// Create creates an index. Analyzers configured on the client are added to
// its analysis settings.
func (s *IndexService) Create(ctx context.Context, name string, settings map[string]any) error {
	return s.svc.Create(ctx, name, settings)
}

// Delete drops an index.
func (s *IndexService) Delete(ctx context.Context, name string) error {
	return s.svc.Delete(ctx, name)
}

// Exists reports whether every named index exists.
func (s *IndexService) Exists(ctx context.Context, names ...string) (bool, error) {
	return s.svc.Exists(ctx, names...)
}

// Open reopens a closed index.
func (s *IndexService) Open(ctx context.Context, name string) error {
	return s.svc.Open(ctx, name)
}

// Close closes an index.
func (s *IndexService) Close(ctx context.Context, name string) error {
	return s.svc.Close(ctx, name)
}

// PutMapping registers the mapping of docType.
func (s *IndexService) PutMapping(ctx context.Context, indexName, docType string, props Properties) error {
	return s.svc.PutMapping(ctx, indexName, docType, props)
}

// PutModelMapping maps model metadata and the requested relation paths, then
// registers the result as the mapping of docType.
func (s *IndexService) PutModelMapping(
	ctx context.Context, indexName, docType string, model *Model, relations ...string,
) (Properties, error) {
	return s.svc.PutModelMapping(ctx, indexName, docType, model, relations...)
}

// Mappings returns the stored mapping of docType.
func (s *IndexService) Mappings(ctx context.Context, indexName, docType string) (map[string]any, error) {
	return s.svc.Mappings(ctx, indexName, docType)
}

// Settings returns index settings.
func (s *IndexService) Settings(ctx context.Context, indexName string) (map[string]any, error) {
	return s.svc.Settings(ctx, indexName)
}

// PutSettings updates index settings.
func (s *IndexService) PutSettings(ctx context.Context, indexName string, settings map[string]any) error {
	return s.svc.PutSettings(ctx, indexName, settings)
}

// ReplaceAnalysis swaps the analysis settings of an index, closing and
// reopening it around the change.
func (s *IndexService) ReplaceAnalysis(ctx context.Context, indexName string, analysis map[string]any) error {
	return s.svc.ReplaceAnalysis(ctx, indexName, analysis)
}

// Stats returns index statistics.
func (s *IndexService) Stats(ctx context.Context, indexName string, metrics ...string) (map[string]any, error) {
	return s.svc.Stats(ctx, indexName, metrics...)
}

// Analyze runs text through analyzer, or the analyzer of field when
// analyzer is empty.
func (s *IndexService) Analyze(ctx context.Context, indexName, analyzer, field string, text ...string) ([]Token, error) {
	return s.svc.Analyze(ctx, &db.AnalyzeRequest{Index: indexName, Analyzer: analyzer, Field: field, Text: text})
}

// Suggest returns term suggestions for text on field.
func (s *IndexService) Suggest(ctx context.Context, indexName, docType, field, text string) ([]Suggestion, error) {
	return s.svc.Suggest(ctx, indexName, docType, field, text)
}
