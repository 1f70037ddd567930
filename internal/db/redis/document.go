package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
)

// writeSource applies one write action atomically and returns
// {status, version}. KEYS[1] is the document key; ARGV holds the action,
// the document type and the JSON body.
const writeSource = `
local key, action, typ, body = KEYS[1], ARGV[1], ARGV[2], ARGV[3]
local version = 0
if redis.call('EXISTS', key) == 1 then
  local current = cjson.decode(redis.call('JSON.GET', key, '$._version'))
  version = tonumber(current[1]) or 0
  if action == 'create' then
    return {409, version}
  end
elseif action == 'update' or action == 'delete' then
  return {404, 0}
end
if action == 'delete' then
  redis.call('DEL', key)
  return {200, version + 1}
end
local status = 200
if version == 0 then
  status = 201
end
version = version + 1
if action == 'update' then
  redis.call('JSON.MERGE', key, '$._source', body)
  redis.call('JSON.SET', key, '$._version', version)
  return {200, version}
end
redis.call('JSON.SET', key, '$',
  '{"_type":' .. cjson.encode(typ) .. ',"_version":' .. version .. ',"_source":' .. body .. '}')
return {status, version}
`

var writeScript = rueidis.NewLuaScript(writeSource)

// Create stores a new document and fails with 409 if it exists.
func (t *Transport) Create(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpCreate, bulk.ActionCreate, req)
}

// Index creates or overwrites a document.
func (t *Transport) Index(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpIndex, bulk.ActionIndex, req)
}

// Update merges req.Body into the stored source.
func (t *Transport) Update(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpUpdate, bulk.ActionUpdate, req)
}

// Delete removes a document.
func (t *Transport) Delete(ctx context.Context, req *db.DocumentRequest) (*db.WriteResponse, error) {
	return t.write(ctx, db.OpDelete, bulk.ActionDelete, req)
}

func (t *Transport) write(
	ctx context.Context, op string, action bulk.Action, req *db.DocumentRequest,
) (*db.WriteResponse, error) {
	args, err := writeArgs(action, req.Type, req.Body)
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}
	res := writeScript.Exec(ctx, t.client, []string{docKey(req.Index, req.Type, req.ID)}, args)
	status, version, err := parseWrite(res)
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}

	switch status {
	case http.StatusNotFound:
		return nil, &db.Error{Op: op, Err: db.ErrDocumentNotFound}
	case http.StatusConflict:
		return nil, &db.Error{Op: op, Err: &db.ResponseError{
			Status: status,
			Type:   conflictType,
			Reason: fmt.Sprintf("[%s]: document already exists", req.ID),
		}}
	}
	return &db.WriteResponse{
		Index:   req.Index,
		Type:    req.Type,
		ID:      req.ID,
		Version: version,
		Result:  resultName(action, status),
	}, nil
}

const (
	conflictType = "version_conflict_engine_exception"
	missingType  = "document_missing_exception"
)

func writeArgs(action bulk.Action, docType string, body map[string]any) ([]string, error) {
	switch action {
	case bulk.ActionCreate, bulk.ActionIndex, bulk.ActionUpdate, bulk.ActionDelete:
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	if body == nil {
		body = map[string]any{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return []string{string(action), docType, string(data)}, nil
}

func parseWrite(res rueidis.RedisResult) (int, int64, error) {
	arr, err := res.ToArray()
	if err != nil {
		return 0, 0, err
	}
	if len(arr) != 2 {
		return 0, 0, fmt.Errorf("unexpected write reply of %d elements", len(arr))
	}
	status, err := arr[0].AsInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("parse status: %w", err)
	}
	version, err := arr[1].AsInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("parse version: %w", err)
	}
	return int(status), version, nil
}

func resultName(action bulk.Action, status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found"
	case action == bulk.ActionDelete:
		return "deleted"
	case status == http.StatusCreated:
		return "created"
	default:
		return "updated"
	}
}

// Bulk pipelines every item in one round trip. Each item is atomic on its
// own; the batch as a whole is not.
func (t *Transport) Bulk(ctx context.Context, req *db.BulkRequest) (*db.BulkResponse, error) {
	if len(req.Items) == 0 {
		return &db.BulkResponse{}, nil
	}

	cmds := make(rueidis.Commands, 0, len(req.Items))
	for i, it := range req.Items {
		args, err := writeArgs(it.Action, it.Type, it.Body)
		if err != nil {
			return nil, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("item %d: %w", i, err)}
		}
		cmds = append(cmds, t.b().Eval().Script(writeSource).Numkeys(1).
			Key(docKey(it.Index, it.Type, it.ID)).Arg(args...).Build())
	}

	results := t.client.DoMulti(ctx, cmds...)
	out := &db.BulkResponse{Items: make([]bulk.Entry, len(req.Items))}
	for i, res := range results {
		it := req.Items[i]
		outcome := bulk.Outcome{Index: it.Index, Type: it.Type, ID: it.ID}

		status, version, err := parseWrite(res)
		switch {
		case err != nil:
			outcome.Status = http.StatusInternalServerError
			outcome.Error = bulk.ErrorPayload("redis_exception", err.Error())
		case status == http.StatusConflict:
			outcome.Status = status
			outcome.Error = bulk.ErrorPayload(conflictType, fmt.Sprintf("[%s]: document already exists", it.ID))
		case status == http.StatusNotFound && it.Action == bulk.ActionDelete:
			found := false
			outcome.Status = status
			outcome.Found = &found
			outcome.Result = resultName(it.Action, status)
		case status == http.StatusNotFound:
			outcome.Status = status
			outcome.Error = bulk.ErrorPayload(missingType, fmt.Sprintf("[%s]: document missing", it.ID))
		default:
			outcome.Status = status
			outcome.Version = version
			outcome.Result = resultName(it.Action, status)
		}
		if outcome.Failed() {
			out.Errors = true
		}
		out.Items[i] = bulk.NewEntry(it.Action, outcome)
	}
	return out, nil
}

// Get fetches one document.
func (t *Transport) Get(ctx context.Context, req *db.GetRequest) (*db.GetResponse, error) {
	cmd := t.b().JsonGet().Key(docKey(req.Index, req.Type, req.ID)).Path("$").Build()
	raw, err := t.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	resp, err := getResponse(req.Index, req.Type, req.ID, raw, req.Source)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if !resp.Found {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
	}
	return resp, nil
}

// MultiGet fetches documents in request order. Missing ids yield entries
// with Found false.
func (t *Transport) MultiGet(ctx context.Context, req *db.MultiGetRequest) (*db.MultiGetResponse, error) {
	if len(req.IDs) == 0 {
		return &db.MultiGetResponse{}, nil
	}

	cmds := make(rueidis.Commands, len(req.IDs))
	for i, id := range req.IDs {
		cmds[i] = t.b().JsonGet().Key(docKey(req.Index, req.Type, id)).Path("$").Build()
	}

	results := t.client.DoMulti(ctx, cmds...)
	out := &db.MultiGetResponse{Docs: make([]db.GetResponse, len(req.IDs))}
	for i, res := range results {
		id := req.IDs[i]
		raw, err := res.ToString()
		switch {
		case rueidis.IsRedisNil(err):
			out.Docs[i] = db.GetResponse{Index: req.Index, Type: req.Type, ID: id}
		case err != nil:
			out.Docs[i] = db.GetResponse{
				Index: req.Index, Type: req.Type, ID: id,
				Error: bulk.ErrorPayload("redis_exception", err.Error()),
			}
		default:
			doc, derr := getResponse(req.Index, req.Type, id, raw, req.Source)
			if derr != nil {
				return nil, &db.Error{Op: db.OpMultiGet, Err: fmt.Errorf("id %s: %w", id, derr)}
			}
			out.Docs[i] = *doc
		}
	}
	return out, nil
}

func getResponse(index, docType, id, raw string, source []string) (*db.GetResponse, error) {
	resp := &db.GetResponse{Index: index, Type: docType, ID: id}
	if raw == "" || raw == "[]" {
		return resp, nil
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	resp.Found = true
	resp.Version = env.Version
	resp.Source = db.FilterSource(env.Source, source)
	return resp, nil
}
