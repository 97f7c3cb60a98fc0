package localstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[uuid.UUID]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[uuid.UUID]map[string]string),
	}
}

// Get returns the value of key or ErrNotFound
func (m *MemoryStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[userID][key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values[userID] == nil {
		m.values[userID] = make(map[string]string)
	}
	m.values[userID][key] = value
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values[userID], key)
	return nil
}
