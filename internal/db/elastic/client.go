// Package elastic implements db.Transport on the official Elasticsearch client.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/kailas-cloud/elodex/internal/db"
)

// Compile-time checks.
var (
	_ db.Transport  = (*Transport)(nil)
	_ db.IndexAdmin = (*Transport)(nil)
)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	MaxRetries int
	// HTTPTransport overrides the HTTP round tripper, mainly for tests.
	HTTPTransport http.RoundTripper
}

// Transport implements db.Transport via go-elasticsearch.
type Transport struct {
	client *elasticsearch.Client
}

// NewTransport creates an Elasticsearch transport.
func NewTransport(cfg Config) (*Transport, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.HTTPTransport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Transport{client: client}, nil
}

// Ping checks connectivity.
func (t *Transport) Ping(ctx context.Context) error {
	return t.do(ctx, db.OpPing, esapi.PingRequest{}, nil)
}

// Close is a no-op: the client holds no resources beyond idle HTTP connections.
func (t *Transport) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (t *Transport) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := t.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// do performs req and decodes a successful body into out (nil discards it).
func (t *Transport) do(ctx context.Context, op string, req esapi.Request, out any) error {
	res, err := req.Do(ctx, t.client)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: op, Err: decodeError(res)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
	Found  *bool           `json:"found"`
	Result string          `json:"result"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// decodeError maps an error response to a db sentinel or *db.ResponseError.
func decodeError(res *esapi.Response) error {
	raw, _ := io.ReadAll(res.Body)
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	var cause errorCause
	if len(body.Error) > 0 {
		if err := json.Unmarshal(body.Error, &cause); err != nil {
			_ = json.Unmarshal(body.Error, &cause.Reason)
		}
	}

	switch {
	case cause.Type == "index_not_found_exception":
		return db.ErrIndexNotFound
	case cause.Type == "resource_already_exists_exception":
		return db.ErrIndexExists
	case cause.Type == "document_missing_exception":
		return db.ErrDocumentNotFound
	case res.StatusCode == http.StatusNotFound && cause.Type == "" &&
		((body.Found != nil && !*body.Found) || body.Result == "not_found" || len(raw) == 0):
		return db.ErrDocumentNotFound
	case cause.Type == "search_context_missing_exception":
		return db.ErrScrollExpired
	}

	reason := cause.Reason
	if reason == "" {
		reason = strings.TrimSpace(string(raw))
	}
	if reason == "" {
		reason = http.StatusText(res.StatusCode)
	}
	return &db.ResponseError{Status: res.StatusCode, Type: cause.Type, Reason: reason}
}

func jsonBody(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return &buf, nil
}

func refreshParam(on bool) string {
	if on {
		return "true"
	}
	return ""
}

func boolPtr(b bool) *bool { return &b }

var errEmptyBody = errors.New("body is required")
