package interfaces

import (
	"context"
	"time"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// SyncOperationRepository defines the interface for the sync audit log.
type SyncOperationRepository interface {
	// Create inserts a new operation in the started state.
	Create(ctx context.Context, op *models.SyncOperation) error

	// GetByID retrieves an operation by its ID.
	// Returns models.ErrNotFound if the operation does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SyncOperation, error)

	// GetLatestByLibrary retrieves the most recently started operation of a library.
	// Returns models.ErrNotFound if the library has no operations.
	GetLatestByLibrary(ctx context.Context, libraryID uuid.UUID) (*models.SyncOperation, error)

	// AddCounters increments the progress counters. Counters only grow;
	// negative deltas are a programming error and are rejected.
	AddCounters(ctx context.Context, id uuid.UUID, processed, added, updated, errors int) error

	// SetStatus transitions the operation and stamps completed_at on
	// terminal states. errorDetails is only written when non-nil.
	SetStatus(ctx context.Context, id uuid.UUID, status models.OperationStatus, errorDetails *string) error

	// AppendLog appends a line to the operation's free-form log column.
	AppendLog(ctx context.Context, id uuid.UUID, line string) error

	// ListByLibrary returns operations of a library, newest first.
	ListByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]models.SyncOperation, error)

	// PruneOlderThan deletes terminal operations older than the cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
