package interfaces

import (
	"context"
	"time"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// ProgressSnapshotRepository defines the interface for the latest-progress
// snapshot served by the sync status endpoint. Snapshots expire on their
// own once a sync stops updating them.
type ProgressSnapshotRepository interface {
	// Save stores the snapshot for the event's library with the given TTL.
	Save(ctx context.Context, event *models.ProgressEvent, ttl time.Duration) error

	// Load retrieves the latest snapshot of a library.
	// Returns models.ErrNotFound when no snapshot exists.
	Load(ctx context.Context, libraryID uuid.UUID) (*models.ProgressEvent, error)

	// Delete removes the snapshot.
	Delete(ctx context.Context, libraryID uuid.UUID) error
}
