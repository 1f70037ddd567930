package index

import (
	"errors"
	"reflect"
	"sync"

	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

type repoKey struct {
	index   string
	typ     reflect.Type
	docType string
}

// Manager hands out one cached Repository per (index, entity type, document
// type). Entity types that report several document types, such as table
// rows, get one repository each.
type Manager struct {
	transport    transport
	defaultIndex string
	opts         []Option
	loaders      map[reflect.Type]entity.Loader

	mu    sync.Mutex
	repos map[repoKey]*Repository
}

// NewManager creates a repository factory. opts apply to every repository.
func NewManager(t transport, defaultIndex string, opts ...Option) *Manager {
	return &Manager{
		transport:    t,
		defaultIndex: defaultIndex,
		opts:         opts,
		loaders:      make(map[reflect.Type]entity.Loader),
		repos:        make(map[repoKey]*Repository),
	}
}

// DefaultIndex returns the index used when none is given.
func (m *Manager) DefaultIndex() string { return m.defaultIndex }

// RegisterLoader sets the hydration loader for repositories of prototype's
// type created after the call.
func (m *Manager) RegisterLoader(prototype entity.Entity, l entity.Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaders[reflect.TypeOf(prototype)] = l
}

// Repository returns the repository for prototype's type in index, creating
// it on first use. An empty index selects the default index.
func (m *Manager) Repository(prototype entity.Entity, index string) (*Repository, error) {
	if prototype == nil {
		return nil, errors.New("entity prototype is required")
	}
	if index == "" {
		index = m.defaultIndex
	}
	key := repoKey{index: index, typ: reflect.TypeOf(prototype), docType: prototype.IndexTypeName()}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.repos[key]; ok {
		return r, nil
	}

	opts := m.opts
	if l, ok := m.loaders[key.typ]; ok {
		opts = append(append([]Option{}, m.opts...), WithLoader(l))
	}
	r, err := New(m.transport, prototype, index, opts...)
	if err != nil {
		return nil, err
	}
	m.repos[key] = r
	return r, nil
}

// Len returns the number of cached repositories.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.repos)
}
