// Package persistence stores the durable slices of client state between
// runs. A Store maps a key (see constants.AuthStateKey and friends) to one
// encoded value.
package persistence

import (
	"context"
	"strings"
	"sync"

	"github.com/agentstation/evently/pkg/errors"
)

// Store loads and saves values by key.
type Store interface {
	// Load decodes the value of key into v and reports whether one existed.
	Load(ctx context.Context, key string, v any) (bool, error)
	// Save encodes v under key, replacing any previous value.
	Save(ctx context.Context, key string, v any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Compile-time interface checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return errors.NewValidationError("key", key, "must be a plain non-empty name")
	}
	return nil
}

// MemoryStore keeps values in memory. Values are copied through the same
// encoding a FileStore uses, so callers never share memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key string, v any) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := decode(raw, v); err != nil {
		return false, errors.WrapParse("yaml", key, err)
	}
	return true, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	raw, err := encode(v)
	if err != nil {
		return errors.WrapParse("yaml", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
