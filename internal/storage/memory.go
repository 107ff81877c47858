package storage

import (
	"context"
	"slices"
	"sync"
)

// Memory is a process-local SlotStore. Sessions survive for the lifetime of
// the process only; intended for development and tests.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

var _ SlotStore = (*Memory)(nil)

// NewMemory creates an empty in-memory slot store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Load returns the payload for key, or ErrNotFound.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(payload), nil
}

// Save replaces the payload for key.
func (m *Memory) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = slices.Clone(payload)
	return nil
}

// Delete removes the slot for key. Absent keys are a no-op.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}
