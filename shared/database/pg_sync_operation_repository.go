package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgSyncOperationRepository implements SyncOperationRepository
var _ interfaces.SyncOperationRepository = (*pgSyncOperationRepository)(nil)

const syncOperationColumns = `
        operation_id, library_id, sync_type, status, started_at, completed_at,
        games_processed, games_added, games_updated, errors_count, error_details, log`

const (
	createSyncOperationQuery = `
        INSERT INTO sync_operations (library_id, sync_type, status)
        VALUES ($1, $2, $3)
        RETURNING operation_id, started_at`

	getSyncOperationByIDQuery = `
        SELECT` + syncOperationColumns + `
        FROM sync_operations
        WHERE operation_id = $1`

	getLatestSyncOperationQuery = `
        SELECT` + syncOperationColumns + `
        FROM sync_operations
        WHERE library_id = $1
        ORDER BY started_at DESC
        LIMIT 1`

	addSyncCountersQuery = `
        UPDATE sync_operations
        SET games_processed = games_processed + $2,
            games_added     = games_added + $3,
            games_updated   = games_updated + $4,
            errors_count    = errors_count + $5
        WHERE operation_id = $1`

	setSyncOperationStatusQuery = `
        UPDATE sync_operations
        SET status = $2,
            error_details = COALESCE($3, error_details),
            completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
        WHERE operation_id = $1`

	appendSyncLogQuery = `
        UPDATE sync_operations
        SET log = COALESCE(log || E'\n', '') || $2
        WHERE operation_id = $1`

	listSyncOperationsByLibraryQuery = `
        SELECT` + syncOperationColumns + `
        FROM sync_operations
        WHERE library_id = $1
        ORDER BY started_at DESC
        LIMIT $2`

	pruneSyncOperationsQuery = `
        DELETE FROM sync_operations
        WHERE status IN ('completed', 'failed', 'cancelled') AND started_at < $1`
)

type pgSyncOperationRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgSyncOperationRepository creates a new PostgreSQL-backed SyncOperationRepository.
func NewPgSyncOperationRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.SyncOperationRepository {
	return &pgSyncOperationRepository{
		db:     db,
		logger: logger.Named("PgSyncOpRepo"),
	}
}

func (r *pgSyncOperationRepository) Create(ctx context.Context, op *models.SyncOperation) error {
	if op.Status == "" {
		op.Status = models.OperationStarted
	}
	err := r.db.QueryRow(ctx, createSyncOperationQuery, op.LibraryID, op.Type, op.Status).
		Scan(&op.ID, &op.StartedAt)
	if err != nil {
		r.logger.Error("Failed to create sync operation", zap.Error(err), zap.String("libraryID", op.LibraryID.String()))
		return fmt.Errorf("failed to create sync operation: %w", err)
	}
	r.logger.Info("Sync operation created",
		zap.String("operationID", op.ID.String()),
		zap.String("libraryID", op.LibraryID.String()),
		zap.String("type", string(op.Type)))
	return nil
}

func (r *pgSyncOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncOperation, error) {
	var op models.SyncOperation
	err := pgxscan.Get(ctx, r.db, &op, getSyncOperationByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get sync operation", zap.Error(err), zap.String("operationID", id.String()))
		return nil, fmt.Errorf("failed to get sync operation: %w", err)
	}
	return &op, nil
}

func (r *pgSyncOperationRepository) GetLatestByLibrary(ctx context.Context, libraryID uuid.UUID) (*models.SyncOperation, error) {
	var op models.SyncOperation
	err := pgxscan.Get(ctx, r.db, &op, getLatestSyncOperationQuery, libraryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get latest sync operation", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("failed to get latest sync operation: %w", err)
	}
	return &op, nil
}

func (r *pgSyncOperationRepository) AddCounters(ctx context.Context, id uuid.UUID, processed, added, updated, errorCount int) error {
	if processed < 0 || added < 0 || updated < 0 || errorCount < 0 {
		return fmt.Errorf("sync operation counters must not decrease")
	}
	tag, err := r.db.Exec(ctx, addSyncCountersQuery, id, processed, added, updated, errorCount)
	if err != nil {
		r.logger.Error("Failed to add sync counters", zap.Error(err), zap.String("operationID", id.String()))
		return fmt.Errorf("failed to add sync counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgSyncOperationRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.OperationStatus, errorDetails *string) error {
	tag, err := r.db.Exec(ctx, setSyncOperationStatusQuery, id, status, errorDetails)
	if err != nil {
		r.logger.Error("Failed to set sync operation status", zap.Error(err),
			zap.String("operationID", id.String()), zap.String("status", string(status)))
		return fmt.Errorf("failed to set sync operation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgSyncOperationRepository) AppendLog(ctx context.Context, id uuid.UUID, line string) error {
	if _, err := r.db.Exec(ctx, appendSyncLogQuery, id, line); err != nil {
		r.logger.Error("Failed to append sync operation log", zap.Error(err), zap.String("operationID", id.String()))
		return fmt.Errorf("failed to append sync operation log: %w", err)
	}
	return nil
}

func (r *pgSyncOperationRepository) ListByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]models.SyncOperation, error) {
	var ops []models.SyncOperation
	if err := pgxscan.Select(ctx, r.db, &ops, listSyncOperationsByLibraryQuery, libraryID, limit); err != nil {
		r.logger.Error("Failed to list sync operations", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("failed to list sync operations: %w", err)
	}
	return ops, nil
}

func (r *pgSyncOperationRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, pruneSyncOperationsQuery, cutoff)
	if err != nil {
		r.logger.Error("Failed to prune sync operations", zap.Error(err))
		return 0, fmt.Errorf("failed to prune sync operations: %w", err)
	}
	return tag.RowsAffected(), nil
}
