// Package storage persists small JSON documents under fixed keys. Each record carries a
// version so concurrent writers detect each other instead of silently overwriting.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Fixed slot keys
const (
	KeyWatchlist     = "movieflix_watchlist"
	KeySearchHistory = "movieflix_search_history"
	KeyTheme         = "movieflix_theme"
)

var (
	// ErrNotFound is returned by Load when no record exists for the key
	ErrNotFound = errors.New("storage: record not found")
	// ErrVersionConflict is returned by Store when the record moved past expectedVersion
	ErrVersionConflict = errors.New("storage: version conflict")
)

// Backend stores opaque text under a key. Version 0 means "no record"; Store with
// expectedVersion 0 only succeeds when the record does not exist yet.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, int64, error)
	Store(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, key string) error
}

type memoryRecord struct {
	data    []byte
	version int64
}

// MemoryBackend keeps records in process memory. Used for the "memory" driver and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]memoryRecord
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]memoryRecord)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return append([]byte(nil), rec.data...), rec.version, nil
}

func (m *MemoryBackend) Store(_ context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[key].version != expectedVersion {
		return 0, ErrVersionConflict
	}
	next := expectedVersion + 1
	m.records[key] = memoryRecord{data: append([]byte(nil), data...), version: next}
	return next, nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
