package mock

import (
	"context"
	"sync"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
)

// MockIndex is an in-memory storage.Index.
// Function fields, when set, replace the default behavior of the matching method.
type MockIndex struct {
	HasCollectionFunc func(ctx context.Context, name string) (bool, error)
	UpsertFunc        func(ctx context.Context, collection string, objects []*core.Object) ([]core.Outcome, error)

	mu          sync.Mutex
	collections map[string]map[core.ID]*core.Object
	batches     [][]core.ID
	closed      bool
}

var _ storage.Index = (*MockIndex)(nil)

// NewMockIndex creates an empty mock with the given collections already created.
func NewMockIndex(collections ...string) *MockIndex {
	m := &MockIndex{collections: make(map[string]map[core.ID]*core.Object)}
	for _, name := range collections {
		m.collections[name] = make(map[core.ID]*core.Object)
	}
	return m
}

// Connector returns a connector handing out this index.
func (m *MockIndex) Connector() storage.Connector {
	return storage.ConnectorFunc(func(ctx context.Context) (storage.Index, error) {
		return m, nil
	})
}

// HasCollection reports whether the collection exists.
func (m *MockIndex) HasCollection(ctx context.Context, name string) (bool, error) {
	if m.HasCollectionFunc != nil {
		return m.HasCollectionFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok, nil
}

// CreateCollection creates an empty collection.
func (m *MockIndex) CreateCollection(ctx context.Context, schema *storage.CollectionSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[schema.Name]; ok {
		return storage.ErrCollectionExists
	}
	m.collections[schema.Name] = make(map[core.ID]*core.Object)
	return nil
}

// DeleteCollection removes the collection.
func (m *MockIndex) DeleteCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// Upsert records the batch and stores every object unless UpsertFunc is set.
// Objects are stored only for outcomes that succeeded.
func (m *MockIndex) Upsert(ctx context.Context, collection string, objects []*core.Object) ([]core.Outcome, error) {
	ids := make([]core.ID, len(objects))
	for i, obj := range objects {
		ids[i] = obj.ID
	}
	m.mu.Lock()
	m.batches = append(m.batches, ids)
	m.mu.Unlock()

	var outcomes []core.Outcome
	if m.UpsertFunc != nil {
		var err error
		outcomes, err = m.UpsertFunc(ctx, collection, objects)
		if err != nil {
			return nil, err
		}
	} else {
		outcomes = make([]core.Outcome, len(objects))
		for i := range outcomes {
			outcomes[i] = core.Succeeded()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.collections[collection]
	if !ok {
		return nil, storage.ErrCollectionNotFound
	}
	for i, obj := range objects {
		if i < len(outcomes) && outcomes[i].OK() {
			stored[obj.ID] = obj
		}
	}
	return outcomes, nil
}

// Count returns the number of stored objects.
func (m *MockIndex) Count(ctx context.Context, collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.collections[collection]
	if !ok {
		return 0, storage.ErrCollectionNotFound
	}
	return len(stored), nil
}

// Close marks the index closed.
func (m *MockIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockIndex) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Batches returns the IDs of every Upsert call, in call order.
func (m *MockIndex) Batches() [][]core.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]core.ID, len(m.batches))
	copy(out, m.batches)
	return out
}

// BatchSizes returns the size of every Upsert call, in call order.
func (m *MockIndex) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batches))
	for i, b := range m.batches {
		sizes[i] = len(b)
	}
	return sizes
}

// Stored returns the object stored under id, if any.
func (m *MockIndex) Stored(collection string, id core.ID) (*core.Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.collections[collection][id]
	return obj, ok
}
