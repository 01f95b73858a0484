package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgUserGameRepository implements UserGameRepository
var _ interfaces.UserGameRepository = (*pgUserGameRepository)(nil)

const userGameColumns = `
        user_game_id, library_id, game_id, platform_game_id, owned, owned_at,
        total_playtime_minutes, first_played_at, last_played_at,
        game_status, user_rating, user_notes, is_favorite, platform_data,
        last_synced_at, created_at, updated_at`

const (
	// The DO UPDATE only fires when the platform snapshot actually differs,
	// so re-running an unchanged sync leaves the row byte-identical.
	// xmax = 0 distinguishes a fresh insert from an update.
	upsertUserGameQuery = `
        INSERT INTO user_games AS ug (library_id, game_id, platform_game_id, owned,
                                      total_playtime_minutes, first_played_at, last_played_at,
                                      platform_data)
        VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7)
        ON CONFLICT (library_id, game_id) DO UPDATE SET
            platform_game_id       = EXCLUDED.platform_game_id,
            owned                  = TRUE,
            total_playtime_minutes = EXCLUDED.total_playtime_minutes,
            first_played_at        = COALESCE(ug.first_played_at, EXCLUDED.first_played_at),
            last_played_at         = COALESCE(EXCLUDED.last_played_at, ug.last_played_at),
            platform_data          = EXCLUDED.platform_data,
            last_synced_at         = NOW(),
            updated_at             = NOW()
        WHERE ug.platform_game_id IS DISTINCT FROM EXCLUDED.platform_game_id
           OR NOT ug.owned
           OR ug.total_playtime_minutes IS DISTINCT FROM EXCLUDED.total_playtime_minutes
           OR COALESCE(EXCLUDED.last_played_at, ug.last_played_at) IS DISTINCT FROM ug.last_played_at
           OR ug.platform_data IS DISTINCT FROM EXCLUDED.platform_data
        RETURNING user_game_id, (xmax = 0) AS inserted`

	getUserGameQuery = `
        SELECT` + userGameColumns + `
        FROM user_games
        WHERE library_id = $1 AND game_id = $2`

	countUserGamesQuery = `SELECT COUNT(*) FROM user_games WHERE library_id = $1 AND owned`
)

type pgUserGameRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserGameRepository creates a new PostgreSQL-backed UserGameRepository.
func NewPgUserGameRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserGameRepository {
	return &pgUserGameRepository{
		db:     db,
		logger: logger.Named("PgUserGameRepo"),
	}
}

func (r *pgUserGameRepository) Upsert(ctx context.Context, querier interfaces.DBTX, row *models.UserGame) (interfaces.UpsertOutcome, error) {
	var inserted bool
	err := querier.QueryRow(ctx, upsertUserGameQuery,
		row.LibraryID, row.GameID, row.PlatformGameID,
		row.TotalPlaytimeMinutes, row.FirstPlayedAt, row.LastPlayedAt,
		row.PlatformData,
	).Scan(&row.ID, &inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conditional update matched nothing: snapshot identical.
			return interfaces.UpsertUnchanged, nil
		}
		r.logger.Error("Failed to upsert user game", zap.Error(err),
			zap.String("libraryID", row.LibraryID.String()), zap.String("gameID", row.GameID.String()))
		return interfaces.UpsertUnchanged, fmt.Errorf("failed to upsert user game: %w", err)
	}
	if inserted {
		return interfaces.UpsertAdded, nil
	}
	return interfaces.UpsertUpdated, nil
}

func (r *pgUserGameRepository) GetByLibraryAndGame(ctx context.Context, querier interfaces.DBTX, libraryID, gameID uuid.UUID) (*models.UserGame, error) {
	var row models.UserGame
	err := pgxscan.Get(ctx, querier, &row, getUserGameQuery, libraryID, gameID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrGameNotFound
		}
		r.logger.Error("Failed to get user game", zap.Error(err),
			zap.String("libraryID", libraryID.String()), zap.String("gameID", gameID.String()))
		return nil, fmt.Errorf("failed to get user game: %w", err)
	}
	return &row, nil
}

func (r *pgUserGameRepository) MapByLibraryAndGameIDs(ctx context.Context, querier interfaces.DBTX, libraryID uuid.UUID, gameIDs []uuid.UUID) (map[uuid.UUID]models.UserGame, error) {
	if len(gameIDs) == 0 {
		return map[uuid.UUID]models.UserGame{}, nil
	}

	ids := make([]string, len(gameIDs))
	for i, id := range gameIDs {
		ids[i] = id.String()
	}

	query := `SELECT` + userGameColumns + ` FROM user_games WHERE library_id = $1 AND game_id = ANY($2::uuid[])`
	var rows []models.UserGame
	if err := pgxscan.Select(ctx, querier, &rows, query, libraryID, pq.Array(ids)); err != nil {
		r.logger.Error("Failed to map user games", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("failed to map user games: %w", err)
	}

	result := make(map[uuid.UUID]models.UserGame, len(rows))
	for _, row := range rows {
		result[row.GameID] = row
	}
	return result, nil
}

func (r *pgUserGameRepository) UpdateUserFields(ctx context.Context, querier interfaces.DBTX, libraryID, gameID uuid.UUID, upd models.UserGameUpdate) (*models.UserGame, error) {
	sets := make([]string, 0, 5)
	args := []interface{}{libraryID, gameID}

	if upd.GameStatus != nil {
		args = append(args, *upd.GameStatus)
		sets = append(sets, fmt.Sprintf("game_status = $%d", len(args)))
	}
	if upd.UserRating != nil {
		args = append(args, *upd.UserRating)
		sets = append(sets, fmt.Sprintf("user_rating = $%d", len(args)))
	}
	if upd.UserNotes != nil {
		args = append(args, *upd.UserNotes)
		sets = append(sets, fmt.Sprintf("user_notes = $%d", len(args)))
	}
	if upd.IsFavorite != nil {
		args = append(args, *upd.IsFavorite)
		sets = append(sets, fmt.Sprintf("is_favorite = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByLibraryAndGame(ctx, querier, libraryID, gameID)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
        UPDATE user_games SET %s
        WHERE library_id = $1 AND game_id = $2
        RETURNING`+userGameColumns, strings.Join(sets, ", "))

	var row models.UserGame
	err := pgxscan.Get(ctx, querier, &row, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrGameNotFound
		}
		r.logger.Error("Failed to update user game fields", zap.Error(err),
			zap.String("libraryID", libraryID.String()), zap.String("gameID", gameID.String()))
		return nil, fmt.Errorf("failed to update user game fields: %w", err)
	}
	return &row, nil
}

func (r *pgUserGameRepository) CountByLibrary(ctx context.Context, querier interfaces.DBTX, libraryID uuid.UUID) (int64, error) {
	var count int64
	if err := querier.QueryRow(ctx, countUserGamesQuery, libraryID).Scan(&count); err != nil {
		r.logger.Error("Failed to count user games", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return 0, fmt.Errorf("failed to count user games: %w", err)
	}
	return count, nil
}
