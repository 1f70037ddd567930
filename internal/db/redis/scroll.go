package redis

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/elodex/internal/db"
)

// Scroll tokens have the form <cursor>@<total>@<index>@<type> with index and
// type query-escaped. Cursor 0 marks an exhausted cursor the server has
// already released.
type cursorToken struct {
	id      int64
	total   int64
	index   string
	docType string
}

func (c cursorToken) String() string {
	return fmt.Sprintf("%d@%d@%s@%s", c.id, c.total, url.QueryEscape(c.index), url.QueryEscape(c.docType))
}

func (c cursorToken) ft() string {
	return searchIndex(c.index, c.docType)
}

func parseCursorToken(s string) (cursorToken, error) {
	parts := strings.Split(s, "@")
	if len(parts) != 4 || parts[2] == "" || parts[3] == "" {
		return cursorToken{}, fmt.Errorf("malformed scroll id %q", s)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return cursorToken{}, fmt.Errorf("malformed scroll id %q: %w", s, err)
	}
	total, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return cursorToken{}, fmt.Errorf("malformed scroll id %q: %w", s, err)
	}
	index, err := url.QueryUnescape(parts[2])
	if err != nil {
		return cursorToken{}, fmt.Errorf("malformed scroll id %q: %w", s, err)
	}
	docType, err := url.QueryUnescape(parts[3])
	if err != nil {
		return cursorToken{}, fmt.Errorf("malformed scroll id %q: %w", s, err)
	}
	return cursorToken{id: id, total: total, index: index, docType: docType}, nil
}

// openCursor runs FT.AGGREGATE WITHCURSOR and, in the same round trip, the
// count that gives the scroll its total. Cursors always start at the first
// match and carry no score cutoff.
func (t *Transport) openCursor(
	ctx context.Context, index, docType string, p *plan, idle time.Duration,
) (*db.SearchResponse, error) {
	if p.from > 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: from in a scroll context", db.ErrNotSupported)}
	}
	if p.minScore != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: min_score in a scroll context", db.ErrNotSupported)}
	}
	ft := searchIndex(index, docType)
	args := []string{ft, p.query, "LOAD", "6", "@__key", "AS", "__key", "$", "AS", "__doc"}
	if p.sort != nil {
		dir := "ASC"
		if p.sort.Desc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", "2", "@"+fieldAlias(p.sort.Field), dir)
	}
	args = append(args,
		"WITHCURSOR", "COUNT", strconv.Itoa(max(p.size, 1)),
		"MAXIDLE", strconv.FormatInt(idle.Milliseconds(), 10),
		"DIALECT", "2",
	)

	start := time.Now()
	results := t.client.DoMulti(ctx,
		t.b().Arbitrary("FT.AGGREGATE").Args(args...).Build(),
		t.countCmd(ft, p.query),
	)
	countRaw, err := results[1].ToArray()
	if err != nil {
		t.dropCursor(ctx, ft, results[0])
		return nil, &db.Error{Op: db.OpSearch, Err: searchErr(err)}
	}
	total, err := parseTotal(countRaw)
	if err != nil {
		t.dropCursor(ctx, ft, results[0])
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	tok := cursorToken{total: total, index: index, docType: docType}
	resp, err := cursorPage(results[0], tok, p.source)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: searchErr(err)}
	}
	resp.Took = int(time.Since(start).Milliseconds())
	return resp, nil
}

// dropCursor deletes the cursor an aggregate reply opened, if any.
func (t *Transport) dropCursor(ctx context.Context, ft string, res rueidis.RedisResult) {
	reply, err := res.ToArray()
	if err != nil || len(reply) != 2 {
		return
	}
	id, err := reply[1].AsInt64()
	if err != nil || id == 0 {
		return
	}
	cmd := t.b().Arbitrary("FT.CURSOR", "DEL").Args(ft, strconv.FormatInt(id, 10)).Build()
	_ = t.do(context.WithoutCancel(ctx), cmd).Error()
}

// Scroll reads the next cursor page.
func (t *Transport) Scroll(ctx context.Context, req *db.ScrollRequest) (*db.SearchResponse, error) {
	tok, err := parseCursorToken(req.ScrollID)
	if err != nil {
		return nil, &db.Error{Op: db.OpScroll, Err: err}
	}
	if tok.id == 0 {
		return &db.SearchResponse{
			ScrollID: tok.String(),
			Hits:     db.Hits{Total: db.Total{Value: tok.total, Relation: "eq"}},
		}, nil
	}

	cmd := t.b().Arbitrary("FT.CURSOR", "READ").Args(tok.ft(), strconv.FormatInt(tok.id, 10)).Build()
	resp, err := cursorPage(t.do(ctx, cmd), tok, nil)
	if err != nil {
		if isRedisErr(err, "cursor not found") {
			return nil, &db.Error{Op: db.OpScroll, Err: db.ErrScrollExpired}
		}
		return nil, &db.Error{Op: db.OpScroll, Err: err}
	}
	return resp, nil
}

// ClearScroll deletes a live cursor. Exhausted or already expired cursors
// are not an error.
func (t *Transport) ClearScroll(ctx context.Context, scrollID string) error {
	tok, err := parseCursorToken(scrollID)
	if err != nil {
		return &db.Error{Op: db.OpClearScroll, Err: err}
	}
	if tok.id == 0 {
		return nil
	}
	cmd := t.b().Arbitrary("FT.CURSOR", "DEL").Args(tok.ft(), strconv.FormatInt(tok.id, 10)).Build()
	if err := t.do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "cursor not found") {
		return &db.Error{Op: db.OpClearScroll, Err: err}
	}
	return nil
}

// cursorPage reads a cursor reply: [[n, row1, row2, ...], cursorID] where
// each row is a flat list of field/value pairs.
func cursorPage(res rueidis.RedisResult, tok cursorToken, source []string) (*db.SearchResponse, error) {
	reply, err := res.ToArray()
	if err != nil {
		return nil, err
	}
	if len(reply) != 2 {
		return nil, fmt.Errorf("unexpected cursor reply of %d elements", len(reply))
	}
	rows, err := reply[0].ToArray()
	if err != nil {
		return nil, fmt.Errorf("parse cursor rows: %w", err)
	}
	cursor, err := reply[1].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse cursor id: %w", err)
	}

	tok.id = cursor
	resp := &db.SearchResponse{
		ScrollID: tok.String(),
		Hits:     db.Hits{Total: db.Total{Value: tok.total, Relation: "eq"}},
	}
	for i := 1; i < len(rows); i++ {
		fields, err := rows[i].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(fields)
		hit, err := buildHit(tok.index, tok.ft(), pairs["__key"], pairs["__doc"], source)
		if err != nil {
			return nil, err
		}
		resp.Hits.Hits = append(resp.Hits.Hits, hit)
	}
	return resp, nil
}
