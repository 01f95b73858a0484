package interfaces

import (
	"context"

	"game-library-server/shared/models"
)

// PlatformAdapter is the uniform contract a platform integration implements.
// Adapters return sync errors classified via models.SyncError so the worker
// can decide between retry, re-enqueue and hard failure.
type PlatformAdapter interface {
	// PlatformCode returns the short code this adapter serves (e.g. "steam").
	PlatformCode() string

	// CountGames returns the size of the user's remote library.
	CountGames(ctx context.Context, lib *models.UserLibrary) (int, error)

	// FetchBatch returns the user's games in [offset, offset+limit) in a
	// stable order. Restartable at any offset; adapters may serve slices
	// from a short-lived per-user cache.
	FetchBatch(ctx context.Context, lib *models.UserLibrary, offset, limit int) ([]models.RawGame, error)

	// Transform maps one platform-shaped entry to the universal shape.
	Transform(raw models.RawGame) (*models.NormalizedGame, error)

	// GetGameDetails fetches per-game enrichment for a single title.
	GetGameDetails(ctx context.Context, lib *models.UserLibrary, platformGameID string) (*models.NormalizedGame, error)
}

// AchievementProvider is implemented by adapters whose platform exposes
// per-game achievements. Callers type-assert from PlatformAdapter.
type AchievementProvider interface {
	// GetAchievementSchema returns the achievement definitions of a game.
	// An empty slice means the game has no achievements.
	GetAchievementSchema(ctx context.Context, platformGameID string) ([]models.PlatformAchievement, error)

	// GetPlayerAchievements returns the user's unlocked achievements for a game.
	GetPlayerAchievements(ctx context.Context, lib *models.UserLibrary, platformGameID string) ([]models.PlayerUnlock, error)
}
