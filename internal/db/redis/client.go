// Package redis implements db.Transport on Redis 8+ with RedisJSON and the
// query engine, via rueidis.
//
// Documents live at <index>:<type>:<id> as JSON envelopes
// {"_type", "_version", "_source"}. Each (index, type) pair gets its own FT
// index named <index>:<type> once a mapping is registered.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/elodex/internal/db"
)

// Compile-time check.
var _ db.Transport = (*Transport)(nil)

// Config holds connection parameters for a Redis server.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Transport implements db.Transport via rueidis.
type Transport struct {
	client rueidis.Client
}

// NewTransport creates a Redis transport.
func NewTransport(cfg Config) (*Transport, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Transport{client: client}, nil
}

// NewTransportForTest wraps an existing client.
func NewTransportForTest(c rueidis.Client) *Transport {
	return &Transport{client: c}
}

// Ping checks connectivity.
func (t *Transport) Ping(ctx context.Context) error {
	cmd := t.b().Ping().Build()
	if err := t.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (t *Transport) Close() {
	t.client.Close()
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (t *Transport) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := t.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (t *Transport) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return t.client.Do(ctx, cmd)
}

func (t *Transport) b() rueidis.Builder {
	return t.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
