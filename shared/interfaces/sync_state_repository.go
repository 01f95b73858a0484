package interfaces

import (
	"context"
	"time"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// SyncStateRepository defines the interface for per-library sync locks and
// checkpoints. Exactly one worker may hold a library's lock at a time;
// deleting the lock out from under the holder signals cancellation.
type SyncStateRepository interface {
	// AcquireLock grabs the library lock for holder with the given TTL.
	// Returns false when another holder currently owns it.
	AcquireLock(ctx context.Context, libraryID uuid.UUID, holder string, ttl time.Duration) (bool, error)

	// RenewLock extends the TTL of a lock still owned by holder.
	// Returns models.ErrLockNotHeld when the lock is gone or owned by
	// someone else; the holder must stop syncing.
	RenewLock(ctx context.Context, libraryID uuid.UUID, holder string, ttl time.Duration) error

	// ReleaseLock deletes the lock if holder still owns it.
	// Returns models.ErrLockNotHeld when it does not.
	ReleaseLock(ctx context.Context, libraryID uuid.UUID, holder string) error

	// ForceReleaseLock deletes the lock regardless of owner.
	// Used by cancel and force-sync; a running holder notices on its
	// next RenewLock or LockHolder check.
	ForceReleaseLock(ctx context.Context, libraryID uuid.UUID) error

	// LockHolder returns the current lock owner, or "" when the lock is free.
	LockHolder(ctx context.Context, libraryID uuid.UUID) (string, error)

	// IsSyncing reports whether any holder owns the library lock.
	IsSyncing(ctx context.Context, libraryID uuid.UUID) (bool, error)

	// SaveCheckpoint persists the resumable position of a sync.
	SaveCheckpoint(ctx context.Context, cp *models.SyncCheckpoint) error

	// LoadCheckpoint retrieves the last saved checkpoint of a library.
	// Returns models.ErrCheckpointNotFound when none exists.
	LoadCheckpoint(ctx context.Context, libraryID uuid.UUID) (*models.SyncCheckpoint, error)

	// DeleteCheckpoint removes the checkpoint after a completed sync.
	DeleteCheckpoint(ctx context.Context, libraryID uuid.UUID) error
}
