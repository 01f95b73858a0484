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
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgCollectionRepository implements CollectionRepository
var _ interfaces.CollectionRepository = (*pgCollectionRepository)(nil)

const (
	createCollectionQuery = `
        INSERT INTO game_collections (library_id, name, description, color, icon, is_smart, rules)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING collection_id, created_at, updated_at`

	getCollectionByIDQuery = `
        SELECT c.collection_id, c.library_id, c.name, c.description, c.color, c.icon,
               c.is_smart, c.rules, c.created_at, c.updated_at,
               COUNT(cg.game_id)::int AS games_count
        FROM game_collections c
        LEFT JOIN collection_games cg ON cg.collection_id = c.collection_id
        WHERE c.collection_id = $1
        GROUP BY c.collection_id`

	listCollectionsByLibraryQuery = `
        SELECT c.collection_id, c.library_id, c.name, c.description, c.color, c.icon,
               c.is_smart, c.rules, c.created_at, c.updated_at,
               COUNT(cg.game_id)::int AS games_count
        FROM game_collections c
        LEFT JOIN collection_games cg ON cg.collection_id = c.collection_id
        WHERE c.library_id = $1
        GROUP BY c.collection_id
        ORDER BY c.name`

	deleteCollectionQuery = `DELETE FROM game_collections WHERE collection_id = $1`

	addCollectionGameQuery = `
        INSERT INTO collection_games (collection_id, game_id)
        VALUES ($1, $2)
        ON CONFLICT (collection_id, game_id) DO NOTHING`

	removeCollectionGameQuery = `
        DELETE FROM collection_games
        WHERE collection_id = $1 AND game_id = $2`
)

var listCollectionGamesQuery = fmt.Sprintf(`
        SELECT %s
        FROM games g
        JOIN collection_games cg ON cg.game_id = g.game_id
        WHERE cg.collection_id = $1
        ORDER BY g.title`, prefixGameColumns("g"))

type pgCollectionRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgCollectionRepository creates a new PostgreSQL-backed CollectionRepository.
func NewPgCollectionRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.CollectionRepository {
	return &pgCollectionRepository{
		db:     db,
		logger: logger.Named("PgCollectionRepo"),
	}
}

func (r *pgCollectionRepository) Create(ctx context.Context, coll *models.GameCollection) error {
	err := r.db.QueryRow(ctx, createCollectionQuery,
		coll.LibraryID, coll.Name, coll.Description, coll.Color, coll.Icon, coll.IsSmart, coll.Rules,
	).Scan(&coll.ID, &coll.CreatedAt, &coll.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create duplicate collection",
				zap.String("libraryID", coll.LibraryID.String()), zap.String("name", coll.Name))
			return models.ErrCollectionAlreadyExists
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.ErrLibraryNotFound
		}
		r.logger.Error("Failed to create collection", zap.Error(err))
		return fmt.Errorf("failed to create collection: %w", err)
	}
	r.logger.Info("Collection created",
		zap.String("collectionID", coll.ID.String()), zap.String("name", coll.Name))
	return nil
}

func (r *pgCollectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GameCollection, error) {
	var coll models.GameCollection
	err := pgxscan.Get(ctx, r.db, &coll, getCollectionByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCollectionNotFound
		}
		r.logger.Error("Failed to get collection", zap.Error(err), zap.String("collectionID", id.String()))
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &coll, nil
}

func (r *pgCollectionRepository) ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]models.GameCollection, error) {
	var colls []models.GameCollection
	if err := pgxscan.Select(ctx, r.db, &colls, listCollectionsByLibraryQuery, libraryID); err != nil {
		r.logger.Error("Failed to list collections", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return colls, nil
}

func (r *pgCollectionRepository) Update(ctx context.Context, id uuid.UUID, name, description, color, icon *string) error {
	sets := make([]string, 0, 4)
	args := []interface{}{id}

	if name != nil {
		args = append(args, *name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if color != nil {
		args = append(args, *color)
		sets = append(sets, fmt.Sprintf("color = $%d", len(args)))
	}
	if icon != nil {
		args = append(args, *icon)
		sets = append(sets, fmt.Sprintf("icon = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE game_collections SET %s WHERE collection_id = $1", strings.Join(sets, ", "))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrCollectionAlreadyExists
		}
		r.logger.Error("Failed to update collection", zap.Error(err), zap.String("collectionID", id.String()))
		return fmt.Errorf("failed to update collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCollectionNotFound
	}
	return nil
}

func (r *pgCollectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteCollectionQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete collection", zap.Error(err), zap.String("collectionID", id.String()))
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCollectionNotFound
	}
	return nil
}

func (r *pgCollectionRepository) AddGame(ctx context.Context, collectionID, gameID uuid.UUID) error {
	_, err := r.db.Exec(ctx, addCollectionGameQuery, collectionID, gameID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			switch {
			case strings.Contains(pgErr.ConstraintName, "collection"):
				return models.ErrCollectionNotFound
			default:
				return models.ErrGameNotFound
			}
		}
		r.logger.Error("Failed to add game to collection", zap.Error(err),
			zap.String("collectionID", collectionID.String()), zap.String("gameID", gameID.String()))
		return fmt.Errorf("failed to add game to collection: %w", err)
	}
	return nil
}

func (r *pgCollectionRepository) RemoveGame(ctx context.Context, collectionID, gameID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, removeCollectionGameQuery, collectionID, gameID)
	if err != nil {
		r.logger.Error("Failed to remove game from collection", zap.Error(err),
			zap.String("collectionID", collectionID.String()), zap.String("gameID", gameID.String()))
		return fmt.Errorf("failed to remove game from collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgCollectionRepository) ListGames(ctx context.Context, collectionID uuid.UUID) ([]models.Game, error) {
	var games []models.Game
	if err := pgxscan.Select(ctx, r.db, &games, listCollectionGamesQuery, collectionID); err != nil {
		r.logger.Error("Failed to list collection games", zap.Error(err), zap.String("collectionID", collectionID.String()))
		return nil, fmt.Errorf("failed to list collection games: %w", err)
	}
	return games, nil
}
