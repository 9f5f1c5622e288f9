// Package storage holds the durable key/value storage backing a browser
// session: the bearer token and the serialized user live here between
// requests and across process restarts.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Keys used by the session store.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrEmptyNamespace is returned when a store is requested without an owner.
var ErrEmptyNamespace = errors.New("storage: empty namespace")

// Store is a small string key/value store scoped to one browser session.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Namespace derives the storage namespace for a browser session id. The raw
// cookie value never appears in a storage key.
func Namespace(secret []byte, browserID string) (string, error) {
	if browserID == "" {
		return "", ErrEmptyNamespace
	}
	var key []byte
	if len(secret) > 0 {
		key = secret
		if len(key) > blake2b.Size {
			sum := blake2b.Sum256(key)
			key = sum[:]
		}
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	_, _ = h.Write([]byte(browserID))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value and whether it existed.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores a value.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// Delete removes the given keys.
func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.values, k)
	}
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
