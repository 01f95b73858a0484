package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/matching"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// GameRef identifies one imported game inside a batch result, carrying just
// enough for game_added / game_updated events.
type GameRef struct {
	GameID         uuid.UUID
	Title          string
	PlatformGameID string
	CoverImageURL  *string
}

// BatchResult is the per-batch outcome of an import.
type BatchResult struct {
	Added     int
	Updated   int
	Unchanged int

	AddedGames   []GameRef
	UpdatedGames []GameRef
}

// CatalogImporter writes one batch of normalized games into the catalog.
// Each batch runs in a single transaction: identity resolution, game row
// upkeep and the user-game link all commit or roll back together.
type CatalogImporter struct {
	pool      *pgxpool.Pool
	resolver  *matching.Resolver
	userGames interfaces.UserGameRepository
	ops       interfaces.SyncOperationRepository
	logger    *zap.Logger
}

// NewCatalogImporter creates a CatalogImporter.
func NewCatalogImporter(
	pool *pgxpool.Pool,
	resolver *matching.Resolver,
	userGames interfaces.UserGameRepository,
	ops interfaces.SyncOperationRepository,
	logger *zap.Logger,
) *CatalogImporter {
	return &CatalogImporter{
		pool:      pool,
		resolver:  resolver,
		userGames: userGames,
		ops:       ops,
		logger:    logger.Named("CatalogImporter"),
	}
}

// UpsertGamesBatch imports one batch for a library and returns the counts.
// Re-running with identical input reports everything as unchanged.
func (i *CatalogImporter) UpsertGamesBatch(ctx context.Context, libraryID, operationID uuid.UUID, games []*models.NormalizedGame) (*BatchResult, error) {
	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result := &BatchResult{}
	for _, ng := range games {
		if err := i.importOne(ctx, tx, libraryID, operationID, ng, result); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit import transaction: %w", err)
	}
	return result, nil
}

func (i *CatalogImporter) importOne(ctx context.Context, tx interfaces.DBTX, libraryID, operationID uuid.UUID, ng *models.NormalizedGame, result *BatchResult) error {
	res, err := i.resolver.Resolve(ctx, tx, ng)
	if err != nil {
		return fmt.Errorf("failed to resolve game %q: %w", ng.Title, err)
	}

	// Playtime decreases are recorded as reported but flagged in the
	// operation log for investigation; the platform is the source of truth.
	existing, err := i.userGames.GetByLibraryAndGame(ctx, tx, libraryID, res.Game.ID)
	if err != nil && !errors.Is(err, models.ErrGameNotFound) {
		return fmt.Errorf("failed to load user game for %q: %w", ng.Title, err)
	}
	if existing != nil && ng.PlaytimeMinutes < existing.TotalPlaytimeMinutes {
		line := fmt.Sprintf("playtime decreased for %q: %d -> %d minutes",
			ng.Title, existing.TotalPlaytimeMinutes, ng.PlaytimeMinutes)
		if logErr := i.ops.AppendLog(ctx, operationID, line); logErr != nil {
			i.logger.Warn("Failed to append operation log", zap.Error(logErr),
				zap.String("operationID", operationID.String()))
		}
	}

	now := time.Now().UTC()
	row := &models.UserGame{
		LibraryID:            libraryID,
		GameID:               res.Game.ID,
		PlatformGameID:       &ng.PlatformGameID,
		Owned:                true,
		TotalPlaytimeMinutes: ng.PlaytimeMinutes,
		LastPlayedAt:         ng.LastPlayedAt,
		PlatformData:         ng.RawData,
		LastSyncedAt:         now,
	}

	outcome, err := i.userGames.Upsert(ctx, tx, row)
	if err != nil {
		return fmt.Errorf("failed to upsert user game %q: %w", ng.Title, err)
	}

	ref := GameRef{
		GameID:         res.Game.ID,
		Title:          res.Game.Title,
		PlatformGameID: ng.PlatformGameID,
		CoverImageURL:  res.Game.CoverImageURL,
	}
	switch outcome {
	case interfaces.UpsertAdded:
		result.Added++
		result.AddedGames = append(result.AddedGames, ref)
	case interfaces.UpsertUpdated:
		result.Updated++
		result.UpdatedGames = append(result.UpdatedGames, ref)
	default:
		result.Unchanged++
	}
	return nil
}
