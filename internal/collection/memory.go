package collection

import (
	"context"
	"sync"

	"planner/internal/common"
)

type memoryEntry struct {
	data    []byte
	version int64
}

// MemoryBackend keeps slots in a map. Used by tests and throwaway servers.
type MemoryBackend struct {
	mu    sync.RWMutex
	slots map[string]memoryEntry
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{slots: make(map[string]memoryEntry)}
}

// GetSlot implements Backend.
func (m *MemoryBackend) GetSlot(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.slots[key]
	if !ok {
		return nil, 0, common.ErrNotFound
	}
	return append([]byte(nil), e.data...), e.version, nil
}

// PutSlot implements Backend.
func (m *MemoryBackend) PutSlot(_ context.Context, key string, data []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.slots[key]
	if expected != Unconditional && expected != current.version {
		return 0, common.ErrVersionConflict
	}
	next := memoryEntry{data: append([]byte(nil), data...), version: current.version + 1}
	m.slots[key] = next
	return next.version, nil
}
