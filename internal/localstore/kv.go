// Package localstore is the last-resort local persistence used when the
// remote document store cannot be reached.
package localstore

import "sync"

// KV is a synchronous string key-value store.
type KV interface {
	// Get reports ok=false when the key has never been set.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
