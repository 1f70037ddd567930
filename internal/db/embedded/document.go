package embedded

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
)

const (
	docPrefix    = "doc:"
	idSep        = "\x1f"
	conflictType = "version_conflict_engine_exception"
	missingType  = "document_missing_exception"
)

// envelope is a stored document. The bleve index only holds the analyzed
// form; the source of truth lives in the index's internal storage.
type envelope struct {
	Type    string         `json:"_type"`
	Version int64          `json:"_version"`
	Source  map[string]any `json:"_source"`
}

func docID(docType, id string) string { return docType + idSep + id }

func splitDocID(s string) (string, string) {
	docType, id, _ := strings.Cut(s, idSep)
	return docType, id
}

func internalKey(bid string) []byte { return []byte(docPrefix + bid) }

// stage adds a write of env (or a delete when env is nil) to batch.
func stage(batch *bleve.Batch, bid string, env *envelope) error {
	if env == nil {
		batch.Delete(bid)
		batch.DeleteInternal(internalKey(bid))
		return nil
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", bid, err)
	}
	doc := maps.Clone(env.Source)
	if doc == nil {
		doc = map[string]any{}
	}
	doc[typeField] = env.Type
	if err := batch.Index(bid, doc); err != nil {
		return fmt.Errorf("index document %s: %w", bid, err)
	}
	batch.SetInternal(internalKey(bid), raw)
	return nil
}

func (s *store) load(bid string) (*envelope, error) {
	raw, err := s.idx.GetInternal(internalKey(bid))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &env, nil
}

func (s *store) countDocs() (uint64, error) {
	n, err := s.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// allDocs loads every stored document keyed by bleve id.
func (s *store) allDocs() (map[string]*envelope, error) {
	n, err := s.countDocs()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*envelope, n)
	if n == 0 {
		return out, nil
	}
	req := bleve.NewSearchRequestOptions(query.NewMatchAllQuery(), int(n), 0, false)
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for _, h := range res.Hits {
		env, err := s.load(h.ID)
		if err != nil {
			return nil, err
		}
		if env != nil {
			out[h.ID] = env
		}
	}
	return out, nil
}

// change is the effect of one write action on a document.
type change struct {
	next    *envelope
	status  int
	version int64
	result  string
	errType string
	reason  string
}

func (c change) failed() bool { return c.errType != "" }

// apply computes the effect of action on prev, the current state of the
// document.
func apply(action bulk.Action, docType, id string, prev *envelope, body map[string]any) change {
	var version int64 = 1
	status := http.StatusCreated
	if prev != nil {
		version = prev.Version + 1
		status = http.StatusOK
	}

	switch action {
	case bulk.ActionCreate:
		if prev != nil {
			return change{status: http.StatusConflict, errType: conflictType,
				reason: fmt.Sprintf("[%s][%s]: version conflict, document already exists", docType, id)}
		}
		return change{next: &envelope{Type: docType, Version: version, Source: body},
			status: status, version: version, result: "created"}
	case bulk.ActionIndex:
		result := "updated"
		if prev == nil {
			result = "created"
		}
		return change{next: &envelope{Type: docType, Version: version, Source: body},
			status: status, version: version, result: result}
	case bulk.ActionUpdate:
		if prev == nil {
			return change{status: http.StatusNotFound, errType: missingType,
				reason: fmt.Sprintf("[%s][%s]: document missing", docType, id)}
		}
		merged := mergeSource(prev.Source, body)
		return change{next: &envelope{Type: docType, Version: version, Source: merged},
			status: http.StatusOK, version: version, result: "updated"}
	case bulk.ActionDelete:
		if prev == nil {
			return change{status: http.StatusNotFound, result: "not_found"}
		}
		return change{status: http.StatusOK, version: version, result: "deleted"}
	}
	return change{status: http.StatusBadRequest, errType: "action_request_validation_exception",
		reason: fmt.Sprintf("unknown action %q", action)}
}

// mergeSource deep-merges patch into a copy of base.
func mergeSource(base, patch map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range patch {
		pm, ok := v.(map[string]any)
		bm, bok := out[k].(map[string]any)
		if ok && bok {
			out[k] = mergeSource(bm, pm)
			continue
		}
		out[k] = v
	}
	return out
}

// Create indexes a new document and fails with status 409 when it exists.
func (t *Transport) Create(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpCreate, bulk.ActionCreate, req)
}

// Index creates or overwrites a document.
func (t *Transport) Index(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpIndex, bulk.ActionIndex, req)
}

// Update merges req.Body into the stored source.
func (t *Transport) Update(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	if len(req.Body) == 0 {
		return nil, &db.Error{Op: db.OpUpdate, Err: fmt.Errorf("body is required")}
	}
	return t.write(ctx, db.OpUpdate, bulk.ActionUpdate, req)
}

// Delete removes a document.
func (t *Transport) Delete(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpDelete, bulk.ActionDelete, req)
}

func (t *Transport) write(
	_ context.Context, op string, action bulk.Action, req *db.DocumentRequest,
) (*db.WriteResponse, error) {
	var resp *db.WriteResponse
	err := t.writeStore(req.Index, func(s *store) error {
		bid := docID(req.Type, req.ID)
		prev, err := s.load(bid)
		if err != nil {
			return err
		}
		c := apply(action, req.Type, req.ID, prev, req.Body)
		switch {
		case c.status == http.StatusNotFound:
			return db.ErrDocumentNotFound
		case c.failed():
			return &db.ResponseError{Status: c.status, Type: c.errType, Reason: c.reason}
		}

		batch := s.idx.NewBatch()
		if err := stage(batch, bid, c.next); err != nil {
			return err
		}
		if err := s.idx.Batch(batch); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		resp = &db.WriteResponse{
			Index: req.Index, Type: req.Type, ID: req.ID,
			Version: c.version, Result: c.result,
		}
		return nil
	})
	if err != nil {
		return nil, opErr(op, err)
	}
	return resp, nil
}

// pending tracks staged but uncommitted writes of one index during a bulk.
type pending struct {
	store *store
	batch *bleve.Batch
	docs  map[string]*envelope
}

// Bulk applies every item in order under a single lock. Later items see the
// effect of earlier ones; each index commits in one bleve batch.
func (t *Transport) Bulk(_ context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
	if len(req.Items) == 0 {
		return &db.BulkResponse{}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	byIndex := map[string]*pending{}
	out := &db.BulkResponse{Items: make([]bulk.Entry, len(req.Items))}
	for i, it := range req.Items {
		outcome := bulk.Outcome{Index: it.Index, Type: it.Type, ID: it.ID}

		p, err := t.pendingFor(byIndex, it.Index)
		if err != nil {
			outcome.Status = http.StatusNotFound
			outcome.Error = bulk.ErrorPayload("index_not_found_exception", err.Error())
			out.Errors = true
			out.Items[i] = bulk.NewEntry(it.Action, outcome)
			continue
		}

		bid := docID(it.Type, it.ID)
		prev, seen := p.docs[bid]
		if !seen {
			if prev, err = p.store.load(bid); err != nil {
				return nil, &db.Error{Op: db.OpBulk, Err: err}
			}
		}

		c := apply(it.Action, it.Type, it.ID, prev, it.Body)
		outcome.Status = c.status
		switch {
		case c.failed():
			outcome.Error = bulk.ErrorPayload(c.errType, c.reason)
		case c.result == "not_found":
			found := false
			outcome.Found = &found
			outcome.Result = c.result
		default:
			if err := stage(p.batch, bid, c.next); err != nil {
				return nil, &db.Error{Op: db.OpBulk, Err: err}
			}
			p.docs[bid] = c.next
			outcome.Version = c.version
			outcome.Result = c.result
		}
		if outcome.Failed() {
			out.Errors = true
		}
		out.Items[i] = bulk.NewEntry(it.Action, outcome)
	}

	for _, p := range byIndex {
		if p.batch.Size() == 0 {
			continue
		}
		if err := p.store.idx.Batch(p.batch); err != nil {
			return nil, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("commit %s: %w", p.store.name, err)}
		}
	}
	return out, nil
}

func (t *Transport) pendingFor(byIndex map[string]*pending, index string) (*pending, error) {
	if p, ok := byIndex[index]; ok {
		return p, nil
	}
	s, err := t.lookup(index)
	if err != nil {
		return nil, err
	}
	p := &pending{store: s, batch: s.idx.NewBatch(), docs: map[string]*envelope{}}
	byIndex[index] = p
	return p, nil
}

// Get fetches one document.
func (t *Transport) Get(_ context.Context, req *db.GetRequest) (*db.GetResponse, error) {
	var resp *db.GetResponse
	err := t.readStore(req.Index, func(s *store) error {
		env, err := s.load(docID(req.Type, req.ID))
		if err != nil {
			return err
		}
		if env == nil {
			return db.ErrDocumentNotFound
		}
		resp = getResponse(req.Index, req.Type, req.ID, env, req.Source)
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpGet, err)
	}
	return resp, nil
}

// MultiGet fetches documents in request order. Missing ids yield entries
// with Found false.
func (t *Transport) MultiGet(_ context.Context, req *db.MultiGetRequest) (*db.MultiGetResponse, error) {
	if len(req.IDs) == 0 {
		return &db.MultiGetResponse{}, nil
	}
	out := &db.MultiGetResponse{Docs: make([]db.GetResponse, len(req.IDs))}
	err := t.readStore(req.Index, func(s *store) error {
		for i, id := range req.IDs {
			env, err := s.load(docID(req.Type, id))
			if err != nil {
				return fmt.Errorf("id %s: %w", id, err)
			}
			if env == nil {
				out.Docs[i] = db.GetResponse{Index: req.Index, Type: req.Type, ID: id}
				continue
			}
			out.Docs[i] = *getResponse(req.Index, req.Type, id, env, req.Source)
		}
		return nil
	})
	if err != nil {
		return nil, opErr(db.OpMultiGet, err)
	}
	return out, nil
}

func getResponse(index, docType, id string, env *envelope, source []string) *db.GetResponse {
	return &db.GetResponse{
		Index:   index,
		Type:    docType,
		ID:      id,
		Version: env.Version,
		Found:   true,
		Source:  db.FilterSource(env.Source, source),
	}
}
