package index

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

type nopLoader struct{}

func (nopLoader) Load(context.Context, []string, ...string) ([]entity.Entity, error) { return nil, nil }

func TestManager_CachesPerIndexAndType(t *testing.T) {
	m := NewManager(&mockTransport{}, "main", WithRefresh(true))

	a, err := m.Repository(&post{}, "")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Repository(&post{id: "other instance"}, "main")
	if a != b {
		t.Error("same index and type returned different repositories")
	}
	if a.Index() != "main" || !a.Refresh() {
		t.Errorf("index=%s refresh=%v", a.Index(), a.Refresh())
	}

	c, _ := m.Repository(&post{}, "archive")
	d, _ := m.Repository(&comment{}, "main")
	if c == a || d == a || m.Len() != 3 {
		t.Errorf("cache size = %d", m.Len())
	}
	if _, err := m.Repository(nil, ""); err == nil {
		t.Error("nil prototype accepted")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(&mockTransport{}, "main")
	var wg sync.WaitGroup
	repos := make([]*Repository, 16)
	for i := range repos {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repos[i], _ = m.Repository(&post{}, "")
		}(i)
	}
	wg.Wait()
	for _, r := range repos {
		if r != repos[0] {
			t.Fatal("concurrent callers got different repositories")
		}
	}
}

func TestManager_RegisteredLoader(t *testing.T) {
	m := NewManager(&mockTransport{}, "main")
	m.RegisterLoader(&post{}, nopLoader{})
	r, err := m.Repository(&post{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.loader == nil {
		t.Error("loader not applied")
	}
	other, _ := m.Repository(&comment{}, "")
	if other.loader != nil {
		t.Error("loader leaked to another type")
	}
}

type row struct {
	post
	docType string
}

func (r *row) IndexTypeName() string { return r.docType }

func TestManager_SeparatesDocumentTypes(t *testing.T) {
	m := NewManager(&mockTransport{}, "main")

	users, _ := m.Repository(&row{docType: "user"}, "")
	orders, _ := m.Repository(&row{docType: "order"}, "")
	again, _ := m.Repository(&row{docType: "user"}, "")

	if users == orders || users != again {
		t.Fatal("expected one repository per document type")
	}
	if users.Type() != "user" || orders.Type() != "order" {
		t.Errorf("unexpected types %q, %q", users.Type(), orders.Type())
	}
}
