package interfaces

import (
	"context"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// UpsertOutcome reports what an idempotent upsert actually did.
type UpsertOutcome int

const (
	UpsertAdded UpsertOutcome = iota
	UpsertUpdated
	UpsertUnchanged
)

// UserGameRepository defines the interface for library-to-game link persistence.
type UserGameRepository interface {
	// Upsert inserts or updates the (libraryID, gameID) link from the
	// synced platform snapshot. Re-running with identical data reports
	// UpsertUnchanged and writes nothing besides last_synced_at.
	Upsert(ctx context.Context, querier DBTX, row *models.UserGame) (UpsertOutcome, error)

	// GetByLibraryAndGame retrieves a single link.
	// Returns models.ErrGameNotFound if the link does not exist.
	GetByLibraryAndGame(ctx context.Context, querier DBTX, libraryID, gameID uuid.UUID) (*models.UserGame, error)

	// MapByLibraryAndGameIDs returns links for the given games keyed by game id.
	// Games without a link in the library are simply absent from the map.
	MapByLibraryAndGameIDs(ctx context.Context, querier DBTX, libraryID uuid.UUID, gameIDs []uuid.UUID) (map[uuid.UUID]models.UserGame, error)

	// UpdateUserFields applies the non-nil user-editable fields.
	// Returns models.ErrGameNotFound if the link does not exist.
	UpdateUserFields(ctx context.Context, querier DBTX, libraryID, gameID uuid.UUID, upd models.UserGameUpdate) (*models.UserGame, error)

	// CountByLibrary returns the number of owned links in a library.
	CountByLibrary(ctx context.Context, querier DBTX, libraryID uuid.UUID) (int64, error)
}
