package docstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process. SetAvailable(false) makes every
// call fail with ErrUnavailable, which is how tests simulate an outage.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	available   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		available:   true,
	}
}

func (m *MemoryStore) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

var errOffline = errors.New("memory store switched offline")

func (m *MemoryStore) check(op string) error {
	if !m.available {
		return Unavailable(op, errOffline)
	}
	return nil
}

func (m *MemoryStore) Create(_ context.Context, collection string, doc Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("create"); err != nil {
		return "", err
	}
	id := uuid.NewString()
	stored := doc.Clone()
	stored["id"] = id
	c, ok := m.collections[collection]
	if !ok {
		c = make(map[string]Document)
		m.collections[collection] = c
	}
	c[id] = stored
	return id, nil
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("get"); err != nil {
		return nil, err
	}
	d, ok := m.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, partial Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("update"); err != nil {
		return err
	}
	d, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range partial {
		if k == "id" {
			continue
		}
		d[k] = v
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete"); err != nil {
		return err
	}
	if _, ok := m.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("query"); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(m.collections[collection]))
	for _, d := range m.collections[collection] {
		docs = append(docs, d.Clone())
	}
	// map iteration is random; settle ties by id so results are repeatable
	Sort(docs, "id", false)
	return Apply(docs, q), nil
}

func (m *MemoryStore) Close() error { return nil }
