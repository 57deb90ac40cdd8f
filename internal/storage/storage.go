package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no snapshot exists for the adventure ID
	ErrNotFound = errors.New("snapshot not found")

	// ErrSnapshotCorrupt is returned when a stored snapshot cannot be
	// decoded or fails validation
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	// ErrQuotaExceeded is returned when the backend refuses a write for
	// capacity reasons. Retrying without freeing space will not help.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for adventure snapshot persistence
type Storage interface {
	HealthChecker
	Closer

	// SaveSnapshot persists the snapshot under its adventure ID,
	// overwriting any previous save for the same adventure
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// LoadSnapshot retrieves a snapshot by adventure ID.
	// Returns ErrNotFound if no snapshot exists.
	LoadSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error)

	// DeleteSnapshot removes a snapshot by adventure ID
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error

	// ListSnapshots returns summaries of all saved adventures,
	// newest first
	ListSnapshots(ctx context.Context) ([]Summary, error)
}
