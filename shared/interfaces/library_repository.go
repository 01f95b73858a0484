package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// LibraryRepository defines the interface for user library persistence.
type LibraryRepository interface {
	// Create inserts a new library.
	// Returns models.ErrLibraryAlreadyExists when a library for the same
	// platform and user identifier already exists.
	Create(ctx context.Context, library *models.UserLibrary) error

	// GetByID retrieves a library by its ID.
	// Returns models.ErrLibraryNotFound if the library does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserLibrary, error)

	// List returns libraries ordered by creation time, newest first.
	List(ctx context.Context, limit, offset int) ([]models.UserLibrary, int64, error)

	// ListSyncEnabled returns every library with sync_enabled = true.
	// Used by the scheduler to queue periodic syncs.
	ListSyncEnabled(ctx context.Context) ([]models.UserLibrary, error)

	// Update applies the non-nil fields to the library.
	// Returns models.ErrLibraryNotFound if the library does not exist.
	Update(ctx context.Context, id uuid.UUID, displayName *string, syncEnabled *bool, credentials json.RawMessage) error

	// Delete removes a library and all dependent rows.
	// Returns models.ErrLibraryNotFound if the library does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetSyncStatus updates the denormalized sync status columns.
	// lastSyncAt is only written when non-nil.
	SetSyncStatus(ctx context.Context, id uuid.UUID, status models.LibrarySyncStatus, syncError *string, lastSyncAt *time.Time) error

	// Stats aggregates per-library game counters.
	// Returns models.ErrLibraryNotFound if the library does not exist.
	Stats(ctx context.Context, id uuid.UUID) (*models.LibraryStats, error)
}
