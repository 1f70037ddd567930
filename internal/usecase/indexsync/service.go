// Package indexsync keeps index documents in step with entity changes.
package indexsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
	"github.com/kailas-cloud/elodex/internal/metrics"
	"github.com/kailas-cloud/elodex/internal/repository/index"
	"github.com/kailas-cloud/elodex/internal/repository/model"
)

// Events.
const (
	EventSaved   = "saved"
	EventDeleted = "deleted"
	EventSeeded  = "seeded"
)

// Service applies entity lifecycle events to the index.
type Service struct {
	writers Writers
	log     *zap.Logger
}

// New creates a sync service.
func New(writers Writers, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{writers: writers, log: log}
}

// Saved indexes a created or updated entity. An entity that may no longer be
// indexed has its document removed instead.
func (s *Service) Saved(ctx context.Context, e entity.Entity) error {
	w, err := s.writers.For(e)
	if err != nil {
		return s.done(EventSaved, e, fmt.Errorf("resolve writer: %w", err))
	}
	if !e.CanAddToIndex() {
		_, err = w.Remove(ctx, e)
		if errors.Is(err, db.ErrDocumentNotFound) {
			err = nil
		}
		return s.done(EventSaved, e, err)
	}
	_, err = w.Save(ctx, e)
	return s.done(EventSaved, e, err)
}

// Deleted removes the document of a deleted entity. A missing document is
// not an error.
func (s *Service) Deleted(ctx context.Context, e entity.Entity) error {
	w, err := s.writers.For(e)
	if err != nil {
		return s.done(EventDeleted, e, fmt.Errorf("resolve writer: %w", err))
	}
	_, err = w.Remove(ctx, e)
	if errors.Is(err, db.ErrDocumentNotFound) {
		err = nil
	}
	return s.done(EventDeleted, e, err)
}

func (s *Service) done(event string, e entity.Entity, err error) error {
	if err != nil {
		metrics.SyncEventsTotal.WithLabelValues(event, "error").Inc()
		s.log.Warn("index sync failed",
			zap.String("event", event),
			zap.String("type", e.IndexTypeName()),
			zap.String("id", e.IndexKey()),
			zap.Error(err),
		)
		return fmt.Errorf("sync %s %s/%s: %w", event, e.IndexTypeName(), e.IndexKey(), err)
	}
	metrics.SyncEventsTotal.WithLabelValues(event, "ok").Inc()
	return nil
}

// SeedReport summarizes a seeding run.
type SeedReport struct {
	Batches int
	Indexed int
	Skipped int
	Failed  []bulk.FailedItem
}

// Seed indexes every row of tbl in bulk batches. Item failures are collected
// and do not stop the run; request failures do.
func (s *Service) Seed(ctx context.Context, src Source, tbl model.Table, batch int) (SeedReport, error) {
	var rep SeedReport
	err := src.Each(ctx, tbl, batch, func(es []entity.Entity) error {
		rep.Batches++
		addable := make([]entity.Entity, 0, len(es))
		for _, e := range es {
			if e.CanAddToIndex() {
				addable = append(addable, e)
			}
		}
		rep.Skipped += len(es) - len(addable)
		if len(addable) == 0 {
			return nil
		}

		w, err := s.writers.For(addable[0])
		if err != nil {
			return fmt.Errorf("resolve writer: %w", err)
		}
		_, err = w.SaveBatch(ctx, addable)
		var opErr *bulk.OperationError
		switch {
		case errors.As(err, &opErr):
			rep.Failed = append(rep.Failed, opErr.FailedItems()...)
			rep.Indexed += len(addable) - opErr.Len()
		case err != nil:
			return err
		default:
			rep.Indexed += len(addable)
		}
		s.log.Debug("seed batch indexed",
			zap.String("table", tbl.Name),
			zap.Int("batch", rep.Batches),
			zap.Int("indexed", rep.Indexed),
		)
		return nil
	})

	metrics.SyncEventsTotal.WithLabelValues(EventSeeded, "ok").Add(float64(rep.Indexed))
	if len(rep.Failed) > 0 {
		metrics.SyncEventsTotal.WithLabelValues(EventSeeded, "error").Add(float64(len(rep.Failed)))
	}
	if err != nil {
		return rep, fmt.Errorf("seed %s: %w", tbl.Name, err)
	}
	s.log.Info("seed finished",
		zap.String("table", tbl.Name),
		zap.Int("indexed", rep.Indexed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", len(rep.Failed)),
	)
	return rep, nil
}

// ManagerWriters resolves writers through an index.Manager.
type ManagerWriters struct {
	Manager *index.Manager
	Index   string
}

// For returns the repository of e's type in the configured index.
func (m ManagerWriters) For(e entity.Entity) (Writer, error) {
	return m.Manager.Repository(e, m.Index)
}
