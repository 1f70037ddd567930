package index

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/search/query"
	"github.com/kailas-cloud/elodex/internal/domain/search/result"
)

// ErrStopScroll ends a scroll early when returned by the page callback.
// Scroll itself then returns nil.
var ErrStopScroll = errors.New("stop scroll")

// PageFunc receives each non-empty page of a scroll.
type PageFunc func(ctx context.Context, page *result.Result) error

// Scroll walks every hit of q page by page through a server-side cursor.
// q must carry a scroll duration. The cursor is released exactly once,
// whichever way the walk ends.
func (r *Repository) Scroll(ctx context.Context, q *query.Search, fn PageFunc) (err error) {
	if q == nil || q.ScrollDuration() <= 0 {
		return domain.ErrScrollDurationMissing
	}
	duration := q.ScrollDuration()

	page, err := r.Search(ctx, q)
	if err != nil {
		return err
	}
	scrollID := page.ScrollID()
	defer func() {
		if cerr := r.clearScroll(context.WithoutCancel(ctx), scrollID); cerr != nil && err == nil {
			err = cerr
		}
	}()

	seen := int64(page.Len())
	if !page.IsEmpty() {
		if err := fn(ctx, page); err != nil {
			return stopErr(err)
		}
	}

	for seen < page.Total() && !page.IsEmpty() {
		if err := contextErr(ctx); err != nil {
			return err
		}

		resp, err := r.transport.Scroll(ctx, &db.ScrollRequest{ScrollID: scrollID, Scroll: duration})
		if err != nil {
			return err
		}
		page = result.New(resp, r.loader)
		if id := page.ScrollID(); id != "" {
			scrollID = id
		}
		if page.IsEmpty() {
			break
		}
		seen += int64(page.Len())

		if err := fn(ctx, page); err != nil {
			return stopErr(err)
		}
	}
	return nil
}

// clearScroll releases the cursor. A failure is logged and returned so that
// it surfaces only when the walk itself succeeded.
func (r *Repository) clearScroll(ctx context.Context, scrollID string) error {
	if scrollID == "" {
		return nil
	}
	if err := r.transport.ClearScroll(ctx, scrollID); err != nil {
		r.logger.Warn("clear scroll failed",
			zap.String("index", r.index),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func stopErr(err error) error {
	if errors.Is(err, ErrStopScroll) {
		return nil
	}
	return err
}
