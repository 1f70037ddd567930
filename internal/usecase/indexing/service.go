package indexing

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
	"github.com/kailas-cloud/elodex/internal/domain/search/query"
)

// Service manages index lifecycle, settings and mappings.
type Service struct {
	backend   Backend
	admin     db.IndexAdmin
	analyzers map[string]map[string]any
	mapper    *mapping.Mapper
	log       *zap.Logger
}

// New creates an index service. analyzers are added to the analysis
// settings of every index created through it.
func New(b Backend, analyzers map[string]map[string]any, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	admin, _ := b.(db.IndexAdmin)
	return &Service{
		backend:   b,
		admin:     admin,
		analyzers: analyzers,
		mapper:    mapping.NewMapper(),
		log:       log,
	}
}

// SupportsAdmin reports whether the backend exposes the administrative API.
func (s *Service) SupportsAdmin() bool { return s.admin != nil }

// Create creates an index with settings. Configured analyzers are merged
// under settings.analysis.analyzer; analyzers named in settings win.
func (s *Service) Create(ctx context.Context, name string, settings map[string]any) error {
	body := map[string]any{}
	if merged := s.withAnalyzers(settings); len(merged) > 0 {
		body["settings"] = merged
	}
	if err := s.backend.CreateIndex(ctx, name, body); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	s.log.Info("index created", zap.String("index", name), zap.Int("analyzers", len(s.analyzers)))
	return nil
}

func (s *Service) withAnalyzers(settings map[string]any) map[string]any {
	out := maps.Clone(settings)
	if len(s.analyzers) == 0 {
		return out
	}
	if out == nil {
		out = map[string]any{}
	}
	analysis := cloneObject(out["analysis"])
	analyzer := cloneObject(analysis["analyzer"])
	for name, def := range s.analyzers {
		if _, ok := analyzer[name]; !ok {
			analyzer[name] = maps.Clone(def)
		}
	}
	analysis["analyzer"] = analyzer
	out["analysis"] = analysis
	return out
}

func cloneObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

// Delete drops an index.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.backend.DeleteIndex(ctx, name); err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	s.log.Info("index deleted", zap.String("index", name))
	return nil
}

// Exists reports whether every named index exists.
func (s *Service) Exists(ctx context.Context, names ...string) (bool, error) {
	ok, err := s.backend.IndexExists(ctx, names...)
	if err != nil {
		return false, fmt.Errorf("check indexes: %w", err)
	}
	return ok, nil
}

// PutMapping registers props for docType.
func (s *Service) PutMapping(ctx context.Context, index, docType string, props mapping.Properties) error {
	if err := s.backend.PutMapping(ctx, index, docType, props); err != nil {
		return fmt.Errorf("put mapping %s/%s: %w", index, docType, err)
	}
	return nil
}

// PutModelMapping derives the mapping of docType from model metadata and the
// requested relation paths, then registers it.
func (s *Service) PutModelMapping(
	ctx context.Context, index, docType string, model *mapping.Model, relations ...string,
) (mapping.Properties, error) {
	props := s.mapper.Map(model, relations...)
	if err := s.PutMapping(ctx, index, docType, props); err != nil {
		return nil, err
	}
	return props, nil
}

// Mappings returns the stored mapping of docType.
func (s *Service) Mappings(ctx context.Context, index, docType string) (map[string]any, error) {
	if s.admin == nil {
		return nil, db.ErrNotSupported
	}
	m, err := s.admin.GetMapping(ctx, index, docType)
	if err != nil {
		return nil, fmt.Errorf("get mapping %s/%s: %w", index, docType, err)
	}
	return m, nil
}

// Open reopens a closed index.
func (s *Service) Open(ctx context.Context, name string) error {
	if s.admin == nil {
		return db.ErrNotSupported
	}
	if err := s.admin.OpenIndex(ctx, name); err != nil {
		return fmt.Errorf("open index %s: %w", name, err)
	}
	return nil
}

// Close closes an index for reads and writes.
func (s *Service) Close(ctx context.Context, name string) error {
	if s.admin == nil {
		return db.ErrNotSupported
	}
	if err := s.admin.CloseIndex(ctx, name); err != nil {
		return fmt.Errorf("close index %s: %w", name, err)
	}
	return nil
}

// Settings returns the settings of an index.
func (s *Service) Settings(ctx context.Context, index string) (map[string]any, error) {
	if s.admin == nil {
		return nil, db.ErrNotSupported
	}
	out, err := s.admin.GetSettings(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("get settings %s: %w", index, err)
	}
	return out, nil
}

// PutSettings updates index settings. Analysis changes require a closed
// index; ReplaceAnalysis handles the close and reopen.
func (s *Service) PutSettings(ctx context.Context, index string, settings map[string]any) error {
	if s.admin == nil {
		return db.ErrNotSupported
	}
	if err := s.admin.PutSettings(ctx, index, settings); err != nil {
		return fmt.Errorf("put settings %s: %w", index, err)
	}
	return nil
}

// ReplaceAnalysis closes index, applies analysis settings and reopens it.
// The index is reopened even when the update fails.
func (s *Service) ReplaceAnalysis(ctx context.Context, index string, analysis map[string]any) (err error) {
	if err := s.Close(ctx, index); err != nil {
		return err
	}
	defer func() {
		if openErr := s.Open(context.WithoutCancel(ctx), index); openErr != nil && err == nil {
			err = openErr
		}
	}()
	return s.PutSettings(ctx, index, map[string]any{"analysis": analysis})
}

// Stats returns index statistics, optionally limited to metrics.
func (s *Service) Stats(ctx context.Context, index string, metrics ...string) (map[string]any, error) {
	if s.admin == nil {
		return nil, db.ErrNotSupported
	}
	out, err := s.admin.Stats(ctx, index, metrics...)
	if err != nil {
		return nil, fmt.Errorf("stats %s: %w", index, err)
	}
	return out, nil
}

// Analyze runs text through an analyzer of index.
func (s *Service) Analyze(ctx context.Context, req *db.AnalyzeRequest) ([]db.Token, error) {
	if s.admin == nil {
		return nil, db.ErrNotSupported
	}
	resp, err := s.admin.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return resp.Tokens, nil
}

// Suggest returns term suggestions for text on field of docType.
func (s *Service) Suggest(ctx context.Context, index, docType, field, text string) ([]db.Suggestion, error) {
	const name = "terms"
	q := query.New().Limit(0).SuggestTerm(name, text, field)
	if err := q.Err(); err != nil {
		return nil, err
	}
	req := &db.SearchRequest{Index: index, Body: q.Body()}
	if docType != "" {
		req.Types = []string{docType}
	}
	resp, err := s.backend.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return resp.Suggest[name], nil
}
