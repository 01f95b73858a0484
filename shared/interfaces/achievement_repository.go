package interfaces

import (
	"context"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// AchievementRepository defines the interface for achievement persistence.
type AchievementRepository interface {
	// UpsertDefinitions inserts or updates the achievement schema of a game.
	// Keyed by (gameID, platformID, platformAchievementID); idempotent.
	UpsertDefinitions(ctx context.Context, querier DBTX, defs []models.Achievement) error

	// ListByGame returns the achievement definitions of a game.
	ListByGame(ctx context.Context, querier DBTX, gameID uuid.UUID) ([]models.Achievement, error)

	// UpsertUnlocks records the player's unlocked achievements for a user game.
	// Keyed by (userGameID, achievementID); idempotent. Returns the number
	// of newly inserted unlocks.
	UpsertUnlocks(ctx context.Context, querier DBTX, unlocks []models.UserAchievement) (int, error)

	// CountUnlocked returns unlocked/total achievement counts for a user game.
	CountUnlocked(ctx context.Context, querier DBTX, userGameID uuid.UUID) (unlocked, total int64, err error)
}
