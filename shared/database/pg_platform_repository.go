package database

import (
	"context"
	"errors"
	"fmt"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgPlatformRepository implements PlatformRepository
var _ interfaces.PlatformRepository = (*pgPlatformRepository)(nil)

const (
	listPlatformsQuery = `
        SELECT platform_id, code, name, api_available, icon_url, base_url, created_at, updated_at
        FROM platforms
        ORDER BY name`

	getPlatformByIDQuery = `
        SELECT platform_id, code, name, api_available, icon_url, base_url, created_at, updated_at
        FROM platforms
        WHERE platform_id = $1`

	getPlatformByCodeQuery = `
        SELECT platform_id, code, name, api_available, icon_url, base_url, created_at, updated_at
        FROM platforms
        WHERE code = $1`
)

type pgPlatformRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgPlatformRepository creates a new PostgreSQL-backed PlatformRepository.
func NewPgPlatformRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.PlatformRepository {
	return &pgPlatformRepository{
		db:     db,
		logger: logger.Named("PgPlatformRepo"),
	}
}

func (r *pgPlatformRepository) List(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	if err := pgxscan.Select(ctx, r.db, &platforms, listPlatformsQuery); err != nil {
		r.logger.Error("Failed to list platforms", zap.Error(err))
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	return platforms, nil
}

func (r *pgPlatformRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	var platform models.Platform
	err := pgxscan.Get(ctx, r.db, &platform, getPlatformByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPlatformNotFound
		}
		r.logger.Error("Failed to get platform by id", zap.Error(err), zap.String("platformID", id.String()))
		return nil, fmt.Errorf("failed to get platform by id: %w", err)
	}
	return &platform, nil
}

func (r *pgPlatformRepository) GetByCode(ctx context.Context, code string) (*models.Platform, error) {
	var platform models.Platform
	err := pgxscan.Get(ctx, r.db, &platform, getPlatformByCodeQuery, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPlatformNotFound
		}
		r.logger.Error("Failed to get platform by code", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("failed to get platform by code %s: %w", code, err)
	}
	return &platform, nil
}
