// Package elodex mirrors application entities into a search index and
// queries them back: schema mapping, query building, single and bulk writes
// with failure correlation, scrolling and result hydration.
package elodex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/db/elastic"
	"github.com/kailas-cloud/elodex/internal/db/embedded"
	"github.com/kailas-cloud/elodex/internal/db/instrumented"
	dbRedis "github.com/kailas-cloud/elodex/internal/db/redis"
	"github.com/kailas-cloud/elodex/internal/repository/index"
	indexinguc "github.com/kailas-cloud/elodex/internal/usecase/indexing"
	indexsyncuc "github.com/kailas-cloud/elodex/internal/usecase/indexsync"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the elodex entry point.
type Client struct {
	transport db.Transport
	manager   *index.Manager
	indexes   *indexinguc.Service
	sync      *indexsyncuc.Service
	logger    *zap.Logger
}

// New creates a Client and waits for the backend to become ready.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:           driverEmbedded,
		defaultIndex:     "elodex",
		readinessTimeout: defaultReadinessTimeout,
		logger:           zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	t, err := createTransport(cfg)
	if err != nil {
		return nil, err
	}

	if err := t.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
		t.Close()
		return nil, fmt.Errorf("elodex: backend not ready: %w", err)
	}

	return wireClient(t, cfg), nil
}

func createTransport(cfg *clientConfig) (db.Transport, error) {
	var (
		t   db.Transport
		err error
	)
	switch cfg.driver {
	case driverElasticsearch:
		if len(cfg.addrs) == 0 {
			return nil, errors.New("elodex: elasticsearch address required")
		}
		t, err = elastic.NewTransport(elastic.Config{
			Addrs:      cfg.addrs,
			Username:   cfg.username,
			Password:   cfg.password,
			MaxRetries: cfg.maxRetries,
		})
	case driverRedis:
		if len(cfg.addrs) == 0 {
			return nil, errors.New("elodex: redis address required")
		}
		t, err = dbRedis.NewTransport(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
		})
	case driverEmbedded:
		t, err = embedded.New(embedded.Config{Dir: cfg.dir})
	default:
		return nil, fmt.Errorf("elodex: unknown driver %q", cfg.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("elodex: create %s transport: %w", cfg.driver, err)
	}
	if cfg.instrument {
		t = instrumented.New(t, cfg.driver, cfg.logger)
	}
	return t, nil
}

func wireClient(t db.Transport, cfg *clientConfig) *Client {
	manager := index.NewManager(t, cfg.defaultIndex,
		index.WithRefresh(cfg.refresh),
		index.WithLogger(cfg.logger),
	)
	return &Client{
		transport: t,
		manager:   manager,
		indexes:   indexinguc.New(t, cfg.analyzers, cfg.logger),
		sync:      indexsyncuc.New(indexsyncuc.ManagerWriters{Manager: manager}, cfg.logger),
		logger:    cfg.logger,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.transport != nil {
		c.transport.Close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.transport.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// DefaultIndex returns the index used when none is given.
func (c *Client) DefaultIndex() string { return c.manager.DefaultIndex() }

// Repository returns the repository of prototype's type in indexName. An
// empty indexName selects the default index.
func (c *Client) Repository(prototype Entity, indexName string) (*Repository, error) {
	r, err := c.manager.Repository(prototype, indexName)
	if err != nil {
		return nil, fmt.Errorf("elodex: %w", err)
	}
	return r, nil
}

// RegisterLoader sets the loader that hydrates search results of
// prototype's type. It applies to repositories created afterwards.
func (c *Client) RegisterLoader(prototype Entity, l Loader) {
	c.manager.RegisterLoader(prototype, l)
}

// Indexes returns the index management service.
func (c *Client) Indexes() *IndexService {
	return &IndexService{svc: c.indexes}
}

// Saved indexes a created or updated entity in the default index, or
// removes its document when the entity may no longer be indexed.
func (c *Client) Saved(ctx context.Context, e Entity) error {
	return c.sync.Saved(ctx, e)
}

// Deleted removes the document of a deleted entity from the default index.
func (c *Client) Deleted(ctx context.Context, e Entity) error {
	return c.sync.Deleted(ctx, e)
}
