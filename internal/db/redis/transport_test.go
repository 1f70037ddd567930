package redis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/bulk"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

func isDBError(err error) bool {
	var e *db.Error
	return errors.As(err, &e)
}

func evalsha(cmd []string) bool { return cmd[0] == "EVALSHA" }

func writeReply(status, version int64) rueidis.RedisResult {
	return mock.Result(mock.RedisArray(mock.RedisInt64(status), mock.RedisInt64(version)))
}

const postDoc = `[{"_type":"posts","_version":2,"_source":{"title":"hello","views":3}}]`

// --- client.go ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	tr := NewTransportForTest(c)
	if err := tr.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	tr := NewTransportForTest(c)
	err := tr.Ping(context.Background())
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestNewTransport_RequiresAddrs(t *testing.T) {
	if _, err := NewTransport(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

// --- document.go ---

func TestCreate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return evalsha(cmd) && cmd[3] == "blog:posts:1" && cmd[4] == "create" &&
				cmd[5] == "posts" && cmd[6] == `{"title":"hello"}`
		})).
		Return(writeReply(201, 1))

	tr := NewTransportForTest(c)
	resp, err := tr.Create(context.Background(), &db.DocumentRequest{
		Index: "blog", Type: "posts", ID: "1", Body: map[string]any{"title": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Version != 1 || resp.Result != "created" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreate_Conflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().Do(gomock.Any(), mock.MatchFn(evalsha)).Return(writeReply(409, 4))

	tr := NewTransportForTest(c)
	_, err := tr.Create(context.Background(), &db.DocumentRequest{Index: "blog", Type: "posts", ID: "1"})
	if !db.IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestIndex_Overwrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().Do(gomock.Any(), mock.MatchFn(evalsha)).Return(writeReply(200, 5))

	tr := NewTransportForTest(c)
	resp, err := tr.Index(context.Background(), &db.DocumentRequest{Index: "blog", Type: "posts", ID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Version != 5 || resp.Result != "updated" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUpdate_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().Do(gomock.Any(), mock.MatchFn(evalsha)).Return(writeReply(404, 0))

	tr := NewTransportForTest(c)
	_, err := tr.Update(context.Background(), &db.DocumentRequest{
		Index: "blog", Type: "posts", ID: "1", Body: map[string]any{"title": "x"},
	})
	if !errors.Is(err, db.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().Do(gomock.Any(), mock.MatchFn(evalsha)).Return(writeReply(200, 3))

	tr := NewTransportForTest(c)
	resp, err := tr.Delete(context.Background(), &db.DocumentRequest{Index: "blog", Type: "posts", ID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != "deleted" {
		t.Fatalf("result = %s", resp.Result)
	}
}

func TestWrite_ScriptError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().Do(gomock.Any(), mock.MatchFn(evalsha)).Return(mock.ErrorResult(context.DeadlineExceeded))

	tr := NewTransportForTest(c)
	_, err := tr.Index(context.Background(), &db.DocumentRequest{Index: "blog", Type: "posts", ID: "1"})
	if !errors.Is(err, context.DeadlineExceeded) || !isDBError(err) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestBulk_Outcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			writeReply(201, 1),
			writeReply(409, 2),
			writeReply(404, 0),
			writeReply(404, 0),
		})

	tr := NewTransportForTest(c)
	resp, err := tr.Bulk(context.Background(), &db.BulkRequest{Items: []db.BulkItem{
		{Action: bulk.ActionCreate, Index: "blog", Type: "posts", ID: "1"},
		{Action: bulk.ActionCreate, Index: "blog", Type: "posts", ID: "2"},
		{Action: bulk.ActionUpdate, Index: "blog", Type: "posts", ID: "3", Body: map[string]any{"a": 1}},
		{Action: bulk.ActionDelete, Index: "blog", Type: "posts", ID: "4"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Errors || len(resp.Items) != 4 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	wantFailed := []bool{false, true, true, true}
	for i, want := range wantFailed {
		_, o, ok := resp.Items[i].Single()
		if !ok {
			t.Fatalf("item %d is empty", i)
		}
		if o.Failed() != want {
			t.Errorf("item %d: failed = %v, want %v", i, o.Failed(), want)
		}
	}
	if _, o, _ := resp.Items[1].Single(); !strings.Contains(bulk.Reason(o.Error), conflictType) {
		t.Errorf("item 1 reason = %s", bulk.Reason(o.Error))
	}
	if _, o, _ := resp.Items[3].Single(); o.Result != "not_found" || o.Found == nil || *o.Found {
		t.Errorf("item 3 = %+v", o)
	}
}

func TestBulk_Empty(t *testing.T) {
	tr := NewTransportForTest(nil)
	resp, err := tr.Bulk(context.Background(), &db.BulkRequest{})
	if err != nil || len(resp.Items) != 0 {
		t.Fatalf("unexpected result: %+v %v", resp, err)
	}
}

func TestBulk_UnknownAction(t *testing.T) {
	tr := NewTransportForTest(nil)
	_, err := tr.Bulk(context.Background(), &db.BulkRequest{Items: []db.BulkItem{{Action: "upsert", ID: "1"}}})
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "blog:posts:1", "$")).
		Return(mock.Result(mock.RedisString(postDoc)))

	tr := NewTransportForTest(c)
	resp, err := tr.Get(context.Background(), &db.GetRequest{
		Index: "blog", Type: "posts", ID: "1", Source: []string{"title"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Found || resp.Version != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if _, ok := resp.Source["views"]; ok {
		t.Fatal("expected views to be filtered out")
	}
	if resp.Source["title"] != "hello" {
		t.Fatalf("source = %v", resp.Source)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "blog:posts:9", "$")).
		Return(mock.Result(mock.RedisNil()))

	tr := NewTransportForTest(c)
	_, err := tr.Get(context.Background(), &db.GetRequest{Index: "blog", Type: "posts", ID: "9"})
	if !errors.Is(err, db.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMultiGet_Order(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisNil()),
			mock.Result(mock.RedisString(postDoc)),
		})

	tr := NewTransportForTest(c)
	resp, err := tr.MultiGet(context.Background(), &db.MultiGetRequest{
		Index: "blog", Type: "posts", IDs: []string{"9", "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Docs) != 2 || resp.Docs[0].Found || !resp.Docs[1].Found {
		t.Fatalf("unexpected docs: %+v", resp.Docs)
	}
	if resp.Docs[0].ID != "9" || resp.Docs[1].ID != "1" {
		t.Fatalf("ids out of order: %+v", resp.Docs)
	}
}

// --- search.go ---

func TestSearch_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			joined := strings.Join(cmd, " ")
			return cmd[0] == "FT.SEARCH" && cmd[1] == "blog:posts" &&
				strings.Contains(joined, "WITHSCORES SORTBY views DESC LIMIT 5 2 RETURN 1 $ DIALECT 2")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(7),
			mock.RedisString("blog:posts:1"),
			mock.RedisString("2.5"),
			mock.RedisArray(mock.RedisString("$"), mock.RedisString(postDoc)),
		)))

	tr := NewTransportForTest(c)
	resp, err := tr.Search(context.Background(), &db.SearchRequest{
		Index: "blog",
		Types: []string{"posts"},
		Body: map[string]any{
			"query": map[string]any{"match": map[string]any{"title": "hello"}},
			"from":  5,
			"size":  2,
			"sort":  []any{map[string]any{"views": map[string]any{"order": "desc"}}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Hits.Total.Value != 7 || len(resp.Hits.Hits) != 1 {
		t.Fatalf("unexpected response: %+v", resp.Hits)
	}
	hit := resp.Hits.Hits[0]
	if hit.ID != "1" || hit.Type != "posts" || *hit.Score != 2.5 || *hit.Version != 2 {
		t.Fatalf("unexpected hit: %+v", hit)
	}
	if resp.Hits.MaxScore == nil || *resp.Hits.MaxScore != 2.5 {
		t.Fatalf("max score = %v", resp.Hits.MaxScore)
	}
}

func TestSearch_MultipleTypes(t *testing.T) {
	tr := NewTransportForTest(nil)
	_, err := tr.Search(context.Background(), &db.SearchRequest{Index: "blog", Types: []string{"a", "b"}})
	if !errors.Is(err, db.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestSearch_NoSuchIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisError("blog:posts: no such index")))

	tr := NewTransportForTest(c)
	_, err := tr.Search(context.Background(), &db.SearchRequest{Index: "blog", Types: []string{"posts"}})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestCount_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "blog:posts", `@draft:{false}`, "LIMIT", "0", "0", "DIALECT", "2")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(12))))

	tr := NewTransportForTest(c)
	resp, err := tr.Count(context.Background(), &db.CountRequest{
		Index: "blog",
		Types: []string{"posts"},
		Body:  map[string]any{"query": map[string]any{"term": map[string]any{"draft": false}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 12 {
		t.Fatalf("count = %d", resp.Count)
	}
}

// --- scroll.go ---

func cursorReply(cursor int64, keys ...string) rueidis.RedisResult {
	rows := []rueidis.RedisMessage{mock.RedisInt64(int64(len(keys)))}
	for _, k := range keys {
		rows = append(rows, mock.RedisArray(
			mock.RedisString("__key"), mock.RedisString(k),
			mock.RedisString("__doc"), mock.RedisString(postDoc),
		))
	}
	return mock.Result(mock.RedisArray(mock.RedisArray(rows...), mock.RedisInt64(cursor)))
}

func TestScroll_OpenAndRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			cursorReply(77, "blog:posts:1", "blog:posts:2"),
			mock.Result(mock.RedisArray(mock.RedisInt64(3))),
		})
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.CURSOR", "READ", "blog:posts", "77")).
		Return(cursorReply(0, "blog:posts:3"))

	tr := NewTransportForTest(c)
	first, err := tr.Search(context.Background(), &db.SearchRequest{
		Index:  "blog",
		Types:  []string{"posts"},
		Body:   map[string]any{"size": 2},
		Scroll: time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Hits.Total.Value != 3 || len(first.Hits.Hits) != 2 {
		t.Fatalf("unexpected first page: %+v", first.Hits)
	}
	if first.ScrollID != "77@3@blog@posts" {
		t.Fatalf("scroll id = %s", first.ScrollID)
	}

	next, err := tr.Scroll(context.Background(), &db.ScrollRequest{ScrollID: first.ScrollID, Scroll: time.Minute})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Hits.Hits) != 1 || next.Hits.Hits[0].ID != "3" {
		t.Fatalf("unexpected second page: %+v", next.Hits)
	}
	if next.ScrollID != "0@3@blog@posts" {
		t.Fatalf("scroll id = %s", next.ScrollID)
	}

	// Exhausted cursors need no server round trip.
	if err := tr.ClearScroll(context.Background(), next.ScrollID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	empty, err := tr.Scroll(context.Background(), &db.ScrollRequest{ScrollID: next.ScrollID})
	if err != nil || len(empty.Hits.Hits) != 0 {
		t.Fatalf("expected empty page, got %+v %v", empty, err)
	}
}

func TestScroll_CountFailureDropsCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			cursorReply(91, "blog:posts:1"),
			mock.Result(mock.RedisError("Timeout limit was reached")),
		})
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.CURSOR", "DEL", "blog:posts", "91")).
		Return(mock.Result(mock.RedisString("OK")))

	tr := NewTransportForTest(c)
	_, err := tr.Search(context.Background(), &db.SearchRequest{
		Index:  "blog",
		Types:  []string{"posts"},
		Body:   map[string]any{"size": 1},
		Scroll: time.Minute,
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestScroll_RejectsOffsetAndScoreCutoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := NewTransportForTest(mock.NewClient(ctrl))

	for _, body := range []map[string]any{{"from": 5}, {"min_score": 0.5}} {
		_, err := tr.Search(context.Background(), &db.SearchRequest{
			Index:  "blog",
			Types:  []string{"posts"},
			Body:   body,
			Scroll: time.Minute,
		})
		if !errors.Is(err, db.ErrNotSupported) {
			t.Errorf("body %v: expected ErrNotSupported, got %v", body, err)
		}
	}
}

func TestCursorToken_EscapesNames(t *testing.T) {
	tok := cursorToken{id: 4, total: 9, index: "team@blog", docType: "posts@v2"}
	got, err := parseCursorToken(tok.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tok {
		t.Fatalf("round trip = %+v, want %+v", got, tok)
	}
	if _, err := parseCursorToken("4@9@blog"); err == nil {
		t.Fatal("expected malformed token error")
	}
}

func TestScroll_Expired(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CURSOR" })).
		Return(mock.Result(mock.RedisError("Cursor not found")))

	tr := NewTransportForTest(c)
	_, err := tr.Scroll(context.Background(), &db.ScrollRequest{ScrollID: "5@10@blog@posts"})
	if !errors.Is(err, db.ErrScrollExpired) {
		t.Fatalf("expected ErrScrollExpired, got %v", err)
	}
}

func TestClearScroll(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.CURSOR", "DEL", "blog:posts", "5")).
		Return(mock.Result(mock.RedisString("OK")))

	tr := NewTransportForTest(c)
	if err := tr.ClearScroll(context.Background(), "5@10@blog@posts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.ClearScroll(context.Background(), "garbage"); err == nil {
		t.Fatal("expected error for malformed scroll id")
	}
}

// --- index.go ---

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "elodex:index:blog"
		})).
		Return(mock.Result(mock.RedisNil()))

	tr := NewTransportForTest(c)
	err := tr.CreateIndex(context.Background(), "blog", nil)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidName(t *testing.T) {
	tr := NewTransportForTest(nil)
	if err := tr.CreateIndex(context.Background(), "bad name", nil); err == nil {
		t.Fatal("expected error for invalid name")
	}
}

func TestIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "elodex:index:a", "elodex:index:b")).
		Return(mock.Result(mock.RedisInt64(1)))

	tr := NewTransportForTest(c)
	ok, err := tr.IndexExists(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected false when one index is missing")
	}
}

func TestPutMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("EXISTS", "elodex:index:blog")).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.DROPINDEX", "blog:posts")).
			Return(mock.Result(mock.RedisError("Unknown Index name"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				joined := strings.Join(cmd, " ")
				return cmd[0] == "FT.CREATE" &&
					strings.Contains(joined, "blog:posts ON JSON PREFIX 1 blog:posts: SCHEMA") &&
					strings.Contains(joined, "$._source.views AS views NUMERIC SORTABLE") &&
					strings.Contains(joined, "$._source.comments[*].body AS comments_body TEXT")
			})).
			Return(mock.Result(mock.RedisString("OK"))),
	)

	tr := NewTransportForTest(c)
	err := tr.PutMapping(context.Background(), "blog", "posts", mapping.Properties{
		"views": {Type: mapping.Integer},
		"comments": {Type: mapping.Nested, Properties: mapping.Properties{
			"body": {Type: mapping.String},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPutMapping_IndexMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "elodex:index:blog")).
		Return(mock.Result(mock.RedisInt64(0)))

	tr := NewTransportForTest(c)
	err := tr.PutMapping(context.Background(), "blog", "posts", mapping.Properties{})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestDeleteIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT._LIST")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisString("blog:posts"),
				mock.RedisString("blogroll:links"),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.DROPINDEX", "blog:posts", "DD")).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
			Return(mock.Result(mock.RedisArray(
				mock.RedisString("0"),
				mock.RedisArray(mock.RedisString("blog:drafts:1")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", "blog:drafts:1", "elodex:index:blog")).
			Return(mock.Result(mock.RedisInt64(2))),
	)

	tr := NewTransportForTest(c)
	if err := tr.DeleteIndex(context.Background(), "blog"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteIndex_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().Do(gomock.Any(), mock.Match("FT._LIST")).Return(mock.Result(mock.RedisArray()))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		Return(mock.Result(mock.RedisArray(mock.RedisString("0"), mock.RedisArray())))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "elodex:index:blog")).
		Return(mock.Result(mock.RedisInt64(0)))

	tr := NewTransportForTest(c)
	err := tr.DeleteIndex(context.Background(), "blog")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}
