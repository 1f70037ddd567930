package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kailas-cloud/elodex/internal/config"
	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/db/elastic"
	"github.com/kailas-cloud/elodex/internal/db/embedded"
	"github.com/kailas-cloud/elodex/internal/db/instrumented"
	dbRedis "github.com/kailas-cloud/elodex/internal/db/redis"
	logpkg "github.com/kailas-cloud/elodex/internal/logger"
	"github.com/kailas-cloud/elodex/internal/repository/index"
	"github.com/kailas-cloud/elodex/internal/repository/model"
	indexinguc "github.com/kailas-cloud/elodex/internal/usecase/indexing"
)

// app is the composition root shared by the commands.
type app struct {
	env       string
	cfg       config.Config
	logger    *zap.Logger
	transport db.Transport
	index     string
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	t, err := newTransport(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	readiness := time.Duration(cfg.Backend.ReadinessTimeout) * time.Second
	if err := t.WaitForReady(ctx, readiness); err != nil {
		t.Close()
		return nil, fmt.Errorf("backend not ready: %w", err)
	}
	logger.Debug("connected to backend", zap.String("driver", cfg.Backend.Driver))

	name := opts.index
	if name == "" {
		name = cfg.Index.DefaultIndex
	}
	return &app{env: env, cfg: cfg, logger: logger, transport: t, index: name}, nil
}

func (a *app) Close() {
	a.transport.Close()
	_ = a.logger.Sync()
}

func newTransport(cfg config.BackendConfig, logger *zap.Logger) (db.Transport, error) {
	var (
		t   db.Transport
		err error
	)
	switch cfg.Driver {
	case config.DriverElasticsearch:
		t, err = elastic.NewTransport(elastic.Config{
			Addrs:      cfg.Addrs,
			Username:   cfg.Username,
			Password:   cfg.Password,
			MaxRetries: cfg.MaxRetries,
		})
	case config.DriverRedis:
		t, err = dbRedis.NewTransport(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	case config.DriverEmbedded:
		t, err = embedded.New(embedded.Config{Dir: cfg.Path})
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.Driver, err)
	}
	return instrumented.New(t, cfg.Driver, logger), nil
}

func (a *app) indexing() *indexinguc.Service {
	return indexinguc.New(a.transport, a.cfg.Index.Analyzers, a.logger)
}

func (a *app) manager() *index.Manager {
	return index.NewManager(a.transport, a.cfg.Index.DefaultIndex,
		index.WithRefresh(a.cfg.Index.Refresh),
		index.WithLogger(a.logger),
	)
}

// openDatabase connects to the entity store. Callers close the returned
// handle with closeDatabase.
func (a *app) openDatabase() (*gorm.DB, error) {
	gdb, err := model.Open(model.Config{
		Driver:        a.cfg.Database.Driver,
		DSN:           a.cfg.Database.DSN,
		SlowThreshold: 200 * time.Millisecond,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return gdb, nil
}

func closeDatabase(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
