package interfaces

import (
	"context"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// CollectionRepository defines the interface for user collection persistence.
type CollectionRepository interface {
	// Create inserts a new collection.
	// Returns models.ErrCollectionAlreadyExists when the library already
	// has a collection with the same name.
	Create(ctx context.Context, coll *models.GameCollection) error

	// GetByID retrieves a collection by its ID.
	// Returns models.ErrCollectionNotFound if the collection does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.GameCollection, error)

	// ListByLibrary returns the collections of a library with game counts.
	ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]models.GameCollection, error)

	// Update applies the non-nil fields to the collection.
	// Returns models.ErrCollectionNotFound if the collection does not exist.
	Update(ctx context.Context, id uuid.UUID, name, description, color, icon *string) error

	// Delete removes a collection and its membership rows.
	// Returns models.ErrCollectionNotFound if the collection does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddGame links a game into a collection. Adding twice is a no-op.
	AddGame(ctx context.Context, collectionID, gameID uuid.UUID) error

	// RemoveGame unlinks a game from a collection.
	// Returns models.ErrNotFound if the link does not exist.
	RemoveGame(ctx context.Context, collectionID, gameID uuid.UUID) error

	// ListGames returns the games of a collection ordered by title.
	ListGames(ctx context.Context, collectionID uuid.UUID) ([]models.Game, error)
}
