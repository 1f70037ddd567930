// Package embedded implements db.Transport on in-process bleve indexes. It
// needs no external service and backs tests, examples and the CLI's local
// mode.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/elodex/internal/db"
	"github.com/kailas-cloud/elodex/internal/domain/mapping"
)

// Compile-time checks.
var (
	_ db.Transport  = (*Transport)(nil)
	_ db.IndexAdmin = (*Transport)(nil)
)

// Config controls where indexes live.
type Config struct {
	// Dir holds one <name>.bleve directory per index. Empty keeps every
	// index in memory.
	Dir string
}

// Transport implements db.Transport on bleve.
type Transport struct {
	dir string

	mu      sync.RWMutex
	indexes map[string]*store
	cursors map[string]*cursor
	now     func() time.Time
}

// store is one named index. Documents of every type share the bleve index
// and are told apart by the _type field.
type store struct {
	name     string
	idx      bleve.Index
	settings map[string]any
	mappings map[string]mapping.Properties
	closed   bool
}

var errTransportClosed = errors.New("embedded transport is closed")

// New creates an embedded transport. Existing indexes under cfg.Dir are
// opened lazily on first use.
func New(cfg Config) (*Transport, error) {
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}
	return &Transport{
		dir:     cfg.Dir,
		indexes: make(map[string]*store),
		cursors: make(map[string]*cursor),
		now:     time.Now,
	}, nil
}

// Ping reports whether the transport is open.
func (t *Transport) Ping(_ context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.indexes == nil {
		return &db.Error{Op: db.OpPing, Err: errTransportClosed}
	}
	return nil
}

// WaitForReady returns at once: there is nothing to wait for.
func (t *Transport) WaitForReady(ctx context.Context, _ time.Duration) error {
	return t.Ping(ctx)
}

// Close closes every index.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.indexes {
		_ = s.idx.Close()
	}
	t.indexes = nil
	t.cursors = nil
}

func (t *Transport) path(name string) string {
	if t.dir == "" {
		return ""
	}
	return filepath.Join(t.dir, name+".bleve")
}

// lookup returns an open index. Callers hold t.mu.
func (t *Transport) lookup(name string) (*store, error) {
	s, err := t.lookupAny(name)
	if err != nil {
		return nil, err
	}
	if s.closed {
		return nil, &db.ResponseError{
			Status: 400,
			Type:   "index_closed_exception",
			Reason: "closed index [" + name + "]",
		}
	}
	return s, nil
}

// lookupAny returns an index whether or not it is closed. Callers hold t.mu.
func (t *Transport) lookupAny(name string) (*store, error) {
	if t.indexes == nil {
		return nil, errTransportClosed
	}
	if s, ok := t.indexes[name]; ok {
		return s, nil
	}
	return t.openFromDisk(name)
}

// openFromDisk opens an index persisted by an earlier process.
func (t *Transport) openFromDisk(name string) (*store, error) {
	p := t.path(name)
	if p == "" {
		return nil, db.ErrIndexNotFound
	}
	if _, err := os.Stat(p); err != nil {
		return nil, db.ErrIndexNotFound
	}
	idx, err := bleve.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", name, err)
	}
	s := &store{name: name, idx: idx, settings: map[string]any{}, mappings: map[string]mapping.Properties{}}
	if err := s.loadMeta(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	t.indexes[name] = s
	return s, nil
}

// readStore runs fn under the read lock. Index opening from disk needs the
// write lock, so it is done first when required.
func (t *Transport) readStore(name string, fn func(s *store) error) error {
	t.mu.RLock()
	_, ok := t.indexes[name]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		_, err := t.lookup(name)
		t.mu.Unlock()
		if err != nil {
			return err
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.lookup(name)
	if err != nil {
		return err
	}
	return fn(s)
}

// writeStore runs fn under the write lock.
func (t *Transport) writeStore(name string, fn func(s *store) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup(name)
	if err != nil {
		return err
	}
	return fn(s)
}

// adminStore is writeStore for operations allowed on closed indexes.
func (t *Transport) adminStore(name string, fn func(s *store) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookupAny(name)
	if err != nil {
		return err
	}
	return fn(s)
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *db.Error
	if errors.As(err, &dbErr) {
		return err
	}
	return &db.Error{Op: op, Err: err}
}
