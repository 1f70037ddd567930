package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

func entries(action bulk.Action, outcomes ...bulk.Outcome) []bulk.Entry {
	out := make([]bulk.Entry, len(outcomes))
	for i, o := range outcomes {
		out[i] = bulk.NewEntry(action, o)
	}
	return out
}

// --- Empty batches ---

func TestBatches_EmptyIsNoop(t *testing.T) {
	repo, mt := newTestRepo(t)
	ctx := context.Background()

	for name, fn := range map[string]func(context.Context, []entity.Entity) (*db.BulkResponse, error){
		"add":    repo.AddBatch,
		"update": repo.UpdateBatch,
		"save":   repo.SaveBatch,
		"remove": repo.RemoveBatch,
	} {
		resp, err := fn(ctx, nil)
		if err != nil || resp == nil || len(resp.Items) != 0 {
			t.Errorf("%s: resp=%+v err=%v", name, resp, err)
		}
	}
	if mt.calls != 0 {
		t.Errorf("transport called %d times", mt.calls)
	}
}

// --- Correlation ---

func TestAddBatch_PartialFailure(t *testing.T) {
	repo, mt := newTestRepo(t)
	inputs := posts("a", "b", "c", "d")

	mt.bulkFn = func(_ context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
		if len(req.Items) != 4 {
			t.Fatalf("items = %d", len(req.Items))
		}
		for _, it := range req.Items {
			if it.Action != bulk.ActionCreate || it.Index != "blog" || it.Type != "post" {
				t.Errorf("item = %+v", it)
			}
		}
		return &db.BulkResponse{Errors: true, Items: entries(bulk.ActionCreate,
			bulk.Outcome{ID: "a", Status: 201, Version: 1},
			bulk.Outcome{ID: "b", Status: 409, Error: bulk.ErrorPayload("version_conflict_engine_exception", "exists")},
			bulk.Outcome{ID: "c", Status: 404, Error: bulk.ErrorPayload("index_not_found_exception", "missing")},
			bulk.Outcome{ID: "d", Status: 201, Version: 1},
		)}, nil
	}

	resp, err := repo.AddBatch(context.Background(), inputs)
	var opErr *bulk.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v", err)
	}
	if resp == nil || len(resp.Items) != 4 {
		t.Fatalf("response not returned with the error")
	}
	failed := opErr.FailedEntities()
	if len(failed) != 2 || failed[0] != inputs[1] || failed[1] != inputs[2] {
		t.Errorf("failed = %v", failed)
	}
	if opErr.ErrorFor("b").Kind != bulk.KindConflict || opErr.ErrorFor("c").Kind != bulk.KindNotFound {
		t.Errorf("kinds = %s/%s", opErr.ErrorFor("b").Kind, opErr.ErrorFor("c").Kind)
	}
	if inputs[0].IndexVersion() != 1 || inputs[1].IndexVersion() != 0 {
		t.Errorf("versions = %d/%d", inputs[0].IndexVersion(), inputs[1].IndexVersion())
	}
}

func TestSaveBatch_AllSucceeded(t *testing.T) {
	repo, mt := newTestRepo(t, WithRefresh(true))
	mt.bulkFn = func(_ context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
		if !req.Refresh {
			t.Error("refresh not applied")
		}
		if req.Items[0].Action != bulk.ActionIndex || req.Items[0].Body["title"] != "title a" {
			t.Errorf("item = %+v", req.Items[0])
		}
		return &db.BulkResponse{Items: entries(bulk.ActionIndex,
			bulk.Outcome{ID: "a", Status: 200, Version: 5},
		)}, nil
	}
	inputs := posts("a")
	if _, err := repo.SaveBatch(context.Background(), inputs); err != nil {
		t.Fatalf("err = %v", err)
	}
	if inputs[0].IndexVersion() != 5 {
		t.Errorf("version = %d", inputs[0].IndexVersion())
	}
}

func TestSaveBatch_TruncatedResponseIsFailure(t *testing.T) {
	repo, mt := newTestRepo(t)
	mt.bulkFn = func(context.Context, *db.BulkRequest) (*db.BulkResponse, error) {
		return &db.BulkResponse{Items: entries(bulk.ActionIndex,
			bulk.Outcome{ID: "a", Status: 200, Version: 1},
		)}, nil
	}
	inputs := posts("a", "b")

	_, err := repo.SaveBatch(context.Background(), inputs)
	var opErr *bulk.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v", err)
	}
	failed := opErr.FailedEntities()
	if len(failed) != 1 || failed[0] != inputs[1] {
		t.Errorf("failed = %v", failed)
	}
	if opErr.ErrorFor("b").Kind != bulk.KindOther {
		t.Errorf("kind = %s", opErr.ErrorFor("b").Kind)
	}
}

func TestSaveBatch_NotAddableRejectsWholeBatch(t *testing.T) {
	repo, mt := newTestRepo(t)
	_, err := repo.SaveBatch(context.Background(), []entity.Entity{&post{id: "a"}, &post{id: "b", hidden: true}})
	if !errors.Is(err, domain.ErrNotAddable) {
		t.Fatalf("err = %v", err)
	}
	if mt.calls != 0 {
		t.Errorf("transport called %d times", mt.calls)
	}
}

func TestRemoveBatch_NotFoundIsFailure(t *testing.T) {
	repo, mt := newTestRepo(t)
	inputs := posts("a", "b")
	found, missing := true, false
	mt.bulkFn = func(_ context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
		if req.Items[1].Action != bulk.ActionDelete || req.Items[1].Body != nil {
			t.Errorf("item = %+v", req.Items[1])
		}
		return &db.BulkResponse{Items: entries(bulk.ActionDelete,
			bulk.Outcome{ID: "a", Status: 200, Found: &found},
			bulk.Outcome{ID: "b", Status: 404, Found: &missing},
		)}, nil
	}

	_, err := repo.RemoveBatch(context.Background(), inputs)
	var opErr *bulk.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v", err)
	}
	if opErr.Len() != 1 || !opErr.NotFoundOnly() {
		t.Errorf("failed=%d notFoundOnly=%v", opErr.Len(), opErr.NotFoundOnly())
	}
}

func TestUpdateBatch_SkipsUnchanged(t *testing.T) {
	repo, mt := newTestRepo(t)
	unchanged := &post{id: "u"}
	inputs := []entity.Entity{unchanged, &post{id: "a", changed: map[string]any{"x": 1}}, &post{id: "b", changed: map[string]any{"x": 2}}}

	mt.bulkFn = func(_ context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
		if len(req.Items) != 2 || req.Items[0].ID != "a" || req.Items[0].Action != bulk.ActionUpdate {
			t.Errorf("items = %+v", req.Items)
		}
		return &db.BulkResponse{Items: entries(bulk.ActionUpdate,
			bulk.Outcome{ID: "a", Status: 200},
			bulk.Outcome{ID: "b", Status: 404, Error: bulk.ErrorPayload("document_missing_exception", "gone")},
		)}, nil
	}

	_, err := repo.UpdateBatch(context.Background(), inputs)
	var opErr *bulk.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v", err)
	}
	it, ok := opErr.FailedItem("b")
	if !ok || it.Entity != inputs[2] {
		t.Errorf("failed item = %+v, want the entity with id b", it)
	}
}

func TestUpdateBatch_NothingChanged(t *testing.T) {
	repo, mt := newTestRepo(t)
	_, err := repo.UpdateBatch(context.Background(), []entity.Entity{&post{id: "a"}})
	if !errors.Is(err, domain.ErrEmptyChangeSet) {
		t.Fatalf("err = %v", err)
	}
	if mt.calls != 0 {
		t.Errorf("transport called %d times", mt.calls)
	}
}

func TestBulk_TransportErrorIsFatal(t *testing.T) {
	repo, mt := newTestRepo(t)
	boom := errors.New("connection refused")
	mt.bulkFn = func(context.Context, *db.BulkRequest) (*db.BulkResponse, error) { return nil, boom }

	resp, err := repo.AddBatch(context.Background(), posts("a"))
	if !errors.Is(err, boom) || resp != nil {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
}
