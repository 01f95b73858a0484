package interfaces

import (
	"context"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// GameFilter narrows catalog listing and search queries.
type GameFilter struct {
	Platforms []string
	Genres    []string
	MinRating *int
	OwnedOnly bool
	LibraryID *uuid.UUID
	Page      int
	Limit     int
}

// GameRepository defines the interface for canonical game persistence.
// Methods take a DBTX so the importer can run them inside its batch
// transaction; pass the pool for standalone reads.
type GameRepository interface {
	// Create inserts a new canonical game.
	Create(ctx context.Context, querier DBTX, game *models.Game) error

	// Update overwrites the mutable catalog fields of an existing game.
	// Returns models.ErrGameNotFound if the game does not exist.
	Update(ctx context.Context, querier DBTX, game *models.Game) error

	// GetByID retrieves a game by its ID.
	// Returns models.ErrGameNotFound if the game does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Game, error)

	// FindBySteamAppID retrieves a game by its Steam app id.
	// Returns models.ErrGameNotFound if no game carries that id.
	FindBySteamAppID(ctx context.Context, querier DBTX, appID int64) (*models.Game, error)

	// FindByExternalID retrieves a game by a platform-scoped external id.
	// Returns models.ErrGameNotFound if no game carries that id.
	FindByExternalID(ctx context.Context, querier DBTX, platformCode, externalID string) (*models.Game, error)

	// FindByNormalizedTitle returns games whose normalized title matches exactly.
	FindByNormalizedTitle(ctx context.Context, querier DBTX, normalizedTitle string) ([]models.Game, error)

	// SlugExists reports whether any game already uses the slug.
	SlugExists(ctx context.Context, querier DBTX, slug string) (bool, error)

	// FindTitleCandidates returns up to limit games with trigram-similar
	// normalized titles, most similar first. Used to pre-filter fuzzy matching.
	FindTitleCandidates(ctx context.Context, querier DBTX, normalizedTitle string, limit int) ([]models.Game, error)

	// List returns catalog games ordered by title with the given filters.
	List(ctx context.Context, querier DBTX, filter GameFilter) ([]models.Game, int64, error)

	// Search runs weighted full-text search over the catalog.
	// Results are ordered by rank, then release date (newest first), then title.
	Search(ctx context.Context, querier DBTX, query string, filter GameFilter) ([]models.Game, int64, error)
}
