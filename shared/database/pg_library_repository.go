package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgLibraryRepository implements LibraryRepository
var _ interfaces.LibraryRepository = (*pgLibraryRepository)(nil)

const (
	createLibraryQuery = `
        INSERT INTO user_libraries (platform_id, user_identifier, display_name, credentials, sync_enabled)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING library_id, sync_status, created_at, updated_at`

	getLibraryByIDQuery = `
        SELECT l.library_id, l.platform_id, l.user_identifier, l.display_name, l.credentials,
               l.sync_enabled, l.sync_status, l.sync_error, l.sync_position, l.last_sync_at,
               l.created_at, l.updated_at, p.code AS platform_code
        FROM user_libraries l
        JOIN platforms p ON p.platform_id = l.platform_id
        WHERE l.library_id = $1`

	listLibrariesQuery = `
        SELECT l.library_id, l.platform_id, l.user_identifier, l.display_name, l.credentials,
               l.sync_enabled, l.sync_status, l.sync_error, l.sync_position, l.last_sync_at,
               l.created_at, l.updated_at, p.code AS platform_code
        FROM user_libraries l
        JOIN platforms p ON p.platform_id = l.platform_id
        ORDER BY l.created_at DESC
        LIMIT $1 OFFSET $2`

	countLibrariesQuery = `SELECT COUNT(*) FROM user_libraries`

	listSyncEnabledLibrariesQuery = `
        SELECT l.library_id, l.platform_id, l.user_identifier, l.display_name, l.credentials,
               l.sync_enabled, l.sync_status, l.sync_error, l.sync_position, l.last_sync_at,
               l.created_at, l.updated_at, p.code AS platform_code
        FROM user_libraries l
        JOIN platforms p ON p.platform_id = l.platform_id
        WHERE l.sync_enabled = TRUE
        ORDER BY l.last_sync_at ASC NULLS FIRST`

	deleteLibraryQuery = `DELETE FROM user_libraries WHERE library_id = $1`

	setLibrarySyncStatusQuery = `
        UPDATE user_libraries
        SET sync_status = $2,
            sync_error = $3,
            last_sync_at = COALESCE($4, last_sync_at),
            updated_at = NOW()
        WHERE library_id = $1`

	libraryStatsQuery = `
        SELECT COUNT(*) FILTER (WHERE owned)                                    AS total_games,
               COALESCE(SUM(total_playtime_minutes), 0)                         AS total_playtime_minutes,
               COUNT(*) FILTER (WHERE game_status = 'completed')                AS completed_games,
               COUNT(*) FILTER (WHERE game_status = 'playing')                  AS playing_games,
               COUNT(*) FILTER (WHERE game_status = 'unplayed')                 AS unplayed_games,
               COUNT(*) FILTER (WHERE game_status = 'abandoned')                AS abandoned_games,
               COUNT(*) FILTER (WHERE game_status = 'wishlist')                 AS wishlist_games,
               COUNT(*) FILTER (WHERE is_favorite)                              AS favorite_games
        FROM user_games
        WHERE library_id = $1`
)

type pgLibraryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgLibraryRepository creates a new PostgreSQL-backed LibraryRepository.
func NewPgLibraryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.LibraryRepository {
	return &pgLibraryRepository{
		db:     db,
		logger: logger.Named("PgLibraryRepo"),
	}
}

func (r *pgLibraryRepository) Create(ctx context.Context, library *models.UserLibrary) error {
	err := r.db.QueryRow(ctx, createLibraryQuery,
		library.PlatformID, library.UserIdentifier, library.DisplayName,
		library.Credentials, library.SyncEnabled,
	).Scan(&library.ID, &library.SyncStatus, &library.CreatedAt, &library.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create duplicate library",
				zap.String("platformID", library.PlatformID.String()),
				zap.String("userIdentifier", library.UserIdentifier))
			return models.ErrLibraryAlreadyExists
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.ErrPlatformNotFound
		}
		r.logger.Error("Failed to create library", zap.Error(err))
		return fmt.Errorf("failed to create library: %w", err)
	}
	r.logger.Info("Library created",
		zap.String("libraryID", library.ID.String()),
		zap.String("userIdentifier", library.UserIdentifier))
	return nil
}

func (r *pgLibraryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UserLibrary, error) {
	var library models.UserLibrary
	err := pgxscan.Get(ctx, r.db, &library, getLibraryByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrLibraryNotFound
		}
		r.logger.Error("Failed to get library by id", zap.Error(err), zap.String("libraryID", id.String()))
		return nil, fmt.Errorf("failed to get library by id: %w", err)
	}
	return &library, nil
}

func (r *pgLibraryRepository) List(ctx context.Context, limit, offset int) ([]models.UserLibrary, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, countLibrariesQuery).Scan(&total); err != nil {
		r.logger.Error("Failed to count libraries", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count libraries: %w", err)
	}

	var libraries []models.UserLibrary
	if err := pgxscan.Select(ctx, r.db, &libraries, listLibrariesQuery, limit, offset); err != nil {
		r.logger.Error("Failed to list libraries", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list libraries: %w", err)
	}
	return libraries, total, nil
}

func (r *pgLibraryRepository) ListSyncEnabled(ctx context.Context) ([]models.UserLibrary, error) {
	var libraries []models.UserLibrary
	if err := pgxscan.Select(ctx, r.db, &libraries, listSyncEnabledLibrariesQuery); err != nil {
		r.logger.Error("Failed to list sync-enabled libraries", zap.Error(err))
		return nil, fmt.Errorf("failed to list sync-enabled libraries: %w", err)
	}
	return libraries, nil
}

func (r *pgLibraryRepository) Update(ctx context.Context, id uuid.UUID, displayName *string, syncEnabled *bool, credentials json.RawMessage) error {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	args = append(args, id)

	if displayName != nil {
		args = append(args, *displayName)
		sets = append(sets, fmt.Sprintf("display_name = $%d", len(args)))
	}
	if syncEnabled != nil {
		args = append(args, *syncEnabled)
		sets = append(sets, fmt.Sprintf("sync_enabled = $%d", len(args)))
	}
	if credentials != nil {
		args = append(args, credentials)
		sets = append(sets, fmt.Sprintf("credentials = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE user_libraries SET %s WHERE library_id = $1", strings.Join(sets, ", "))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update library", zap.Error(err), zap.String("libraryID", id.String()))
		return fmt.Errorf("failed to update library: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLibraryNotFound
	}
	return nil
}

func (r *pgLibraryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteLibraryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete library", zap.Error(err), zap.String("libraryID", id.String()))
		return fmt.Errorf("failed to delete library: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLibraryNotFound
	}
	r.logger.Info("Library deleted", zap.String("libraryID", id.String()))
	return nil
}

func (r *pgLibraryRepository) SetSyncStatus(ctx context.Context, id uuid.UUID, status models.LibrarySyncStatus, syncError *string, lastSyncAt *time.Time) error {
	tag, err := r.db.Exec(ctx, setLibrarySyncStatusQuery, id, status, syncError, lastSyncAt)
	if err != nil {
		r.logger.Error("Failed to set library sync status", zap.Error(err),
			zap.String("libraryID", id.String()), zap.String("status", string(status)))
		return fmt.Errorf("failed to set library sync status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLibraryNotFound
	}
	return nil
}

func (r *pgLibraryRepository) Stats(ctx context.Context, id uuid.UUID) (*models.LibraryStats, error) {
	// Existence check first so an empty library is distinguishable from a
	// missing one.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_libraries WHERE library_id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check library existence: %w", err)
	}
	if !exists {
		return nil, models.ErrLibraryNotFound
	}

	var stats models.LibraryStats
	if err := pgxscan.Get(ctx, r.db, &stats, libraryStatsQuery, id); err != nil {
		r.logger.Error("Failed to compute library stats", zap.Error(err), zap.String("libraryID", id.String()))
		return nil, fmt.Errorf("failed to compute library stats: %w", err)
	}
	if stats.TotalGames > 0 {
		stats.CompletionPercent = float64(stats.CompletedGames) / float64(stats.TotalGames) * 100
	}
	return &stats, nil
}
