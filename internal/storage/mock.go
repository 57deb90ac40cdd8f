package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory implementation of Storage for testing
type MockStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*Snapshot
	pingError error
	saveError error
	saveCount int
}

// Ensure MockStore implements Storage interface
var _ Storage = (*MockStore)(nil)

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{
		snapshots: make(map[uuid.UUID]*Snapshot),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail every SaveSnapshot with the
// given error; nil restores normal saving.
func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SaveCount reports how many saves have been attempted
func (m *MockStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCount
}

// Ping mocks storage ping
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStore) Close() error {
	return nil
}

// SaveSnapshot mocks saving a snapshot
func (m *MockStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCount++
	if m.saveError != nil {
		return m.saveError
	}

	snap.SavedAt = time.Now()
	stored := *snap
	m.snapshots[snap.ID] = &stored
	return nil
}

// LoadSnapshot mocks loading a snapshot
func (m *MockStore) LoadSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, exists := m.snapshots[id]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *snap
	return &copied, nil
}

// DeleteSnapshot mocks deleting a snapshot
func (m *MockStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}

// ListSnapshots mocks listing snapshots, newest first
func (m *MockStore) ListSnapshots(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		summaries = append(summaries, snap.Summary())
	}

	slices.SortFunc(summaries, func(a, b Summary) int {
		return b.SavedAt.Compare(a.SavedAt)
	})

	return summaries, nil
}
