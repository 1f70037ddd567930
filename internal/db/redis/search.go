package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/elodex/internal/db"
)

const defaultSize = 10

// plan is a search body reduced to what FT.SEARCH can express. Highlight,
// suggest and aggregation sections are ignored.
type plan struct {
	query    string
	from     int
	size     int
	sort     *db.SortSpec
	source   []string
	minScore *float64
}

func planSearch(body map[string]any) (*plan, error) {
	q, err := translate(body["query"])
	if err != nil {
		return nil, err
	}
	p := &plan{
		query:  q,
		from:   db.Int(body["from"], 0),
		size:   db.Int(body["size"], defaultSize),
		source: db.Strings(body["_source"]),
	}
	for _, s := range db.Sorts(body["sort"]) {
		if s.Field == "_score" {
			continue
		}
		p.sort = &s
		break
	}
	if v, ok := db.Number(body["min_score"]); ok {
		p.minScore = &v
	}
	return p, nil
}

func (p *plan) sortArgs() []string {
	if p.sort == nil {
		return nil
	}
	dir := "ASC"
	if p.sort.Desc {
		dir = "DESC"
	}
	return []string{"SORTBY", fieldAlias(p.sort.Field), dir}
}

// ftIndex resolves the FT index of a single-type request.
func ftIndex(index string, types []string) (string, error) {
	if len(types) != 1 {
		return "", fmt.Errorf("%w: searching %d types at once", db.ErrNotSupported, len(types))
	}
	return searchIndex(index, types[0]), nil
}

// Search runs FT.SEARCH, or opens a cursor when req.Scroll is set.
func (t *Transport) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResponse, error) {
	ft, err := ftIndex(req.Index, req.Types)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	p, err := planSearch(req.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	if req.Scroll > 0 {
		return t.openCursor(ctx, req.Index, req.Types[0], p, req.Scroll)
	}

	args := []string{ft, p.query, "WITHSCORES"}
	args = append(args, p.sortArgs()...)
	args = append(args,
		"LIMIT", strconv.Itoa(p.from), strconv.Itoa(p.size),
		"RETURN", "1", "$",
		"DIALECT", "2",
	)

	start := time.Now()
	cmd := t.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := t.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: searchErr(err)}
	}

	resp, err := parseSearch(req.Index, ft, raw, p)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	resp.Took = int(time.Since(start).Milliseconds())
	return resp, nil
}

// Count returns the number of matching documents via FT.SEARCH LIMIT 0 0.
func (t *Transport) Count(ctx context.Context, req *db.CountRequest) (*db.CountResponse, error) {
	ft, err := ftIndex(req.Index, req.Types)
	if err != nil {
		return nil, &db.Error{Op: db.OpCount, Err: err}
	}
	q, err := translate(req.Body["query"])
	if err != nil {
		return nil, &db.Error{Op: db.OpCount, Err: err}
	}
	n, err := t.count(ctx, ft, q)
	if err != nil {
		return nil, &db.Error{Op: db.OpCount, Err: err}
	}
	return &db.CountResponse{Count: n}, nil
}

func (t *Transport) countCmd(ft, q string) rueidis.Completed {
	return t.b().Arbitrary("FT.SEARCH").Args(ft, q, "LIMIT", "0", "0", "DIALECT", "2").Build()
}

func (t *Transport) count(ctx context.Context, ft, q string) (int64, error) {
	raw, err := t.do(ctx, t.countCmd(ft, q)).ToArray()
	if err != nil {
		return 0, searchErr(err)
	}
	return parseTotal(raw)
}

func parseTotal(raw []rueidis.RedisMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return total, nil
}

func searchErr(err error) error {
	if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
		return db.ErrIndexNotFound
	}
	return err
}

// parseSearch reads a WITHSCORES reply:
// [total, key1, score1, ["$", json1], key2, score2, ["$", json2], ...].
func parseSearch(index, ft string, raw []rueidis.RedisMessage, p *plan) (*db.SearchResponse, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	resp := &db.SearchResponse{Hits: db.Hits{Total: db.Total{Value: total, Relation: "eq"}}}

	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		if p.minScore != nil && score < *p.minScore {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		hit, err := buildHit(index, ft, key, parseFieldPairs(fields)["$"], p.source)
		if err != nil {
			return nil, err
		}
		hit.Score = &score
		if resp.Hits.MaxScore == nil || score > *resp.Hits.MaxScore {
			s := score
			resp.Hits.MaxScore = &s
		}
		resp.Hits.Hits = append(resp.Hits.Hits, hit)
	}
	return resp, nil
}

func buildHit(index, ft, key, doc string, source []string) (db.Hit, error) {
	hit := db.Hit{Index: index, ID: docID(ft, key)}
	if doc == "" {
		return hit, nil
	}
	env, err := decodeEnvelope(doc)
	if err != nil {
		return hit, fmt.Errorf("key %s: %w", key, err)
	}
	version := env.Version
	hit.Type = env.Type
	hit.Version = &version
	hit.Source = db.FilterSource(env.Source, source)
	return hit, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
