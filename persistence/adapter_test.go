package persistence

import (
	"errors"
	"sync"
	"testing"

	"github.com/cellgraph/cellgraph"
)

// memStore is an in-memory Store test double, avoiding filesystem flakiness
// for adapter-level behavior that doesn't need a real backend.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return v, nil
}

func (m *memStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func TestAdapter_PersistsEveryWrite(t *testing.T) {
	store := newMemStore()
	src := cellgraph.NewSource(0)

	a, err := NewAdapter[int](src, store, "counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	src.Write(42)

	data, err := store.Load("counter")
	if err != nil {
		t.Fatalf("expected the store to have persisted counter, got %v", err)
	}
	if string(data) != "42" {
		t.Fatalf("expected JSON-encoded 42, got %q", data)
	}
}

func TestAdapter_LoadOnInitSeedsSourceFromStore(t *testing.T) {
	store := newMemStore()
	store.data["counter"] = []byte("7")

	src := cellgraph.NewSource(0)
	a, err := NewAdapter[int](src, store, "counter", LoadOnInit[int](true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if src.Read() != 7 {
		t.Fatalf("expected LoadOnInit to seed the source with 7, got %d", src.Read())
	}
}

func TestAdapter_ErrorHandlerReceivesSaveFailures(t *testing.T) {
	store := &failingStore{}
	src := cellgraph.NewSource(0)

	var failures []*cellgraph.PersistenceFailure
	a, err := NewAdapter[int](src, store, "x", WithErrorHandler[int](func(f *cellgraph.PersistenceFailure) {
		failures = append(failures, f)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	src.Write(1)

	if len(failures) != 1 || failures[0].Op != "save" {
		t.Fatalf("expected one save failure, got %v", failures)
	}
}

func TestAdapter_CloseStopsFurtherPersistence(t *testing.T) {
	store := newMemStore()
	src := cellgraph.NewSource(0)

	a, err := NewAdapter[int](src, store, "counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src.Write(1)
	a.Close()
	src.Write(2)

	data, _ := store.Load("counter")
	if string(data) != "1" {
		t.Fatalf("expected the store to keep the value at the time of Close (1), got %q", data)
	}
}

type failingStore struct{}

func (failingStore) Load(key string) ([]byte, error)        { return nil, errors.New("not found") }
func (failingStore) Save(key string, data []byte) error     { return errors.New("disk full") }
