package database

import (
	"context"
	"fmt"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgAchievementRepository implements AchievementRepository
var _ interfaces.AchievementRepository = (*pgAchievementRepository)(nil)

const (
	upsertAchievementDefinitionQuery = `
        INSERT INTO game_achievements AS a (game_id, platform_id, platform_achievement_id,
                                            title, description, icon_url, points, rarity_percent, is_hidden)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (game_id, platform_id, platform_achievement_id) DO UPDATE SET
            title          = EXCLUDED.title,
            description    = EXCLUDED.description,
            icon_url       = EXCLUDED.icon_url,
            points         = EXCLUDED.points,
            rarity_percent = EXCLUDED.rarity_percent,
            is_hidden      = EXCLUDED.is_hidden,
            updated_at     = NOW()
        WHERE a.title IS DISTINCT FROM EXCLUDED.title
           OR a.description IS DISTINCT FROM EXCLUDED.description
           OR a.icon_url IS DISTINCT FROM EXCLUDED.icon_url
           OR a.points IS DISTINCT FROM EXCLUDED.points
           OR a.rarity_percent IS DISTINCT FROM EXCLUDED.rarity_percent
           OR a.is_hidden IS DISTINCT FROM EXCLUDED.is_hidden`

	listAchievementsByGameQuery = `
        SELECT achievement_id, game_id, platform_id, platform_achievement_id,
               title, description, icon_url, points, rarity_percent, is_hidden,
               created_at, updated_at
        FROM game_achievements
        WHERE game_id = $1
        ORDER BY platform_achievement_id`

	upsertUnlockQuery = `
        INSERT INTO user_achievements (user_game_id, achievement_id, unlocked_at, progress_percent)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_game_id, achievement_id) DO NOTHING`

	countUnlockedQuery = `
        SELECT COUNT(ua.user_achievement_id) AS unlocked,
               (SELECT COUNT(*)
                FROM game_achievements ga
                JOIN user_games ug ON ug.game_id = ga.game_id
                WHERE ug.user_game_id = $1) AS total
        FROM user_achievements ua
        WHERE ua.user_game_id = $1`
)

type pgAchievementRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgAchievementRepository creates a new PostgreSQL-backed AchievementRepository.
func NewPgAchievementRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.AchievementRepository {
	return &pgAchievementRepository{
		db:     db,
		logger: logger.Named("PgAchievementRepo"),
	}
}

func (r *pgAchievementRepository) UpsertDefinitions(ctx context.Context, querier interfaces.DBTX, defs []models.Achievement) error {
	for i := range defs {
		d := &defs[i]
		_, err := querier.Exec(ctx, upsertAchievementDefinitionQuery,
			d.GameID, d.PlatformID, d.PlatformAchievementID,
			d.Title, d.Description, d.IconURL, d.Points, d.RarityPercent, d.Hidden,
		)
		if err != nil {
			r.logger.Error("Failed to upsert achievement definition", zap.Error(err),
				zap.String("gameID", d.GameID.String()),
				zap.String("platformAchievementID", d.PlatformAchievementID))
			return fmt.Errorf("failed to upsert achievement %s: %w", d.PlatformAchievementID, err)
		}
	}
	return nil
}

func (r *pgAchievementRepository) ListByGame(ctx context.Context, querier interfaces.DBTX, gameID uuid.UUID) ([]models.Achievement, error) {
	var defs []models.Achievement
	if err := pgxscan.Select(ctx, querier, &defs, listAchievementsByGameQuery, gameID); err != nil {
		r.logger.Error("Failed to list achievements", zap.Error(err), zap.String("gameID", gameID.String()))
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return defs, nil
}

func (r *pgAchievementRepository) UpsertUnlocks(ctx context.Context, querier interfaces.DBTX, unlocks []models.UserAchievement) (int, error) {
	newUnlocks := 0
	for i := range unlocks {
		u := &unlocks[i]
		tag, err := querier.Exec(ctx, upsertUnlockQuery,
			u.UserGameID, u.AchievementID, u.UnlockedAt, u.ProgressPercent,
		)
		if err != nil {
			r.logger.Error("Failed to upsert unlock", zap.Error(err),
				zap.String("userGameID", u.UserGameID.String()),
				zap.String("achievementID", u.AchievementID.String()))
			return newUnlocks, fmt.Errorf("failed to upsert unlock: %w", err)
		}
		newUnlocks += int(tag.RowsAffected())
	}
	return newUnlocks, nil
}

func (r *pgAchievementRepository) CountUnlocked(ctx context.Context, querier interfaces.DBTX, userGameID uuid.UUID) (unlocked, total int64, err error) {
	if err := querier.QueryRow(ctx, countUnlockedQuery, userGameID).Scan(&unlocked, &total); err != nil {
		r.logger.Error("Failed to count unlocked achievements", zap.Error(err), zap.String("userGameID", userGameID.String()))
		return 0, 0, fmt.Errorf("failed to count unlocked achievements: %w", err)
	}
	return unlocked, total, nil
}
