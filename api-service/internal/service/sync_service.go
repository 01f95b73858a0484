package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerResult is the response of POST /libraries/{id}/sync.
type TriggerResult struct {
	JobID    uuid.UUID       `json:"job_id"`
	Queue    string          `json:"queue"`
	SyncType models.SyncType `json:"sync_type"`
}

// SyncService controls sync runs: trigger, status and cancel.
type SyncService interface {
	// Trigger enqueues a high-priority sync job for the library.
	// Returns *SyncConflictError when a sync is already running and force
	// is not set; with force the running sync is evicted first.
	Trigger(ctx context.Context, libraryID uuid.UUID, force bool, syncType models.SyncType) (*TriggerResult, error)

	// Status returns the latest progress of the library's sync: the live
	// tracker snapshot when one exists, otherwise a document derived from
	// the library's durable sync columns.
	Status(ctx context.Context, libraryID uuid.UUID) (*models.ProgressEvent, error)

	// Cancel stops the running sync by deleting its lock; the worker
	// notices and checkpoints.
	// Returns models.ErrNoActiveSync when nothing is running.
	Cancel(ctx context.Context, libraryID uuid.UUID) error

	// History returns the recent sync operations of the library.
	History(ctx context.Context, libraryID uuid.UUID, limit int) ([]models.SyncOperation, error)
}

type syncService struct {
	libraries  interfaces.LibraryRepository
	operations interfaces.SyncOperationRepository
	syncState  interfaces.SyncStateRepository
	snapshots  interfaces.ProgressSnapshotRepository
	queue      interfaces.JobQueue
	logger     *zap.Logger
}

// Compile-time check
var _ SyncService = (*syncService)(nil)

// NewSyncService creates a SyncService.
func NewSyncService(
	libraries interfaces.LibraryRepository,
	operations interfaces.SyncOperationRepository,
	syncState interfaces.SyncStateRepository,
	snapshots interfaces.ProgressSnapshotRepository,
	queue interfaces.JobQueue,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		libraries:  libraries,
		operations: operations,
		syncState:  syncState,
		snapshots:  snapshots,
		queue:      queue,
		logger:     logger.Named("SyncService"),
	}
}

func (s *syncService) Trigger(ctx context.Context, libraryID uuid.UUID, force bool, syncType models.SyncType) (*TriggerResult, error) {
	lib, err := s.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	syncing, err := s.syncState.IsSyncing(ctx, lib.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check sync state: %w", err)
	}
	if syncing && !force {
		conflict := &SyncConflictError{}
		if op, err := s.operations.GetLatestByLibrary(ctx, lib.ID); err == nil {
			conflict.OperationID = &op.ID
		}
		return nil, conflict
	}
	if syncing && force {
		if err := s.syncState.ForceReleaseLock(ctx, lib.ID); err != nil {
			return nil, fmt.Errorf("failed to evict running sync: %w", err)
		}
		s.logger.Info("Evicted running sync for force trigger",
			zap.String("libraryID", lib.ID.String()))
	}

	if syncType == "" {
		syncType = models.SyncTypeManual
	}
	args, err := json.Marshal(models.SyncJobArgs{
		LibraryID: lib.ID,
		Force:     force,
		SyncType:  syncType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job args: %w", err)
	}
	job := &models.Job{
		Queue:    models.QueueHigh,
		Function: models.JobSyncLibrary,
		Args:     args,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue sync job: %w", err)
	}

	if err := s.libraries.SetSyncStatus(ctx, lib.ID, models.SyncStatusQueued, nil, nil); err != nil {
		s.logger.Warn("Failed to mark library queued", zap.Error(err),
			zap.String("libraryID", lib.ID.String()))
	}

	s.logger.Info("Sync triggered",
		zap.String("libraryID", lib.ID.String()),
		zap.String("jobID", job.ID.String()),
		zap.Bool("force", force))
	return &TriggerResult{JobID: job.ID, Queue: job.Queue, SyncType: syncType}, nil
}

func (s *syncService) Status(ctx context.Context, libraryID uuid.UUID) (*models.ProgressEvent, error) {
	lib, err := s.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.Load(ctx, lib.ID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load progress snapshot: %w", err)
	}

	// No live snapshot; derive a document from the durable columns.
	event := &models.ProgressEvent{
		LibraryID: lib.ID,
		Platform:  lib.PlatformCode,
		Status:    progressStatusFor(lib.SyncStatus),
		UpdatedAt: lib.UpdatedAt,
	}
	if lib.SyncError != nil {
		event.Message = *lib.SyncError
	}
	if op, err := s.operations.GetLatestByLibrary(ctx, lib.ID); err == nil {
		event.OperationID = op.ID
		event.GamesProcessed = op.GamesProcessed
		event.GamesAdded = op.GamesAdded
		event.GamesUpdated = op.GamesUpdated
		event.StartedAt = op.StartedAt
	}
	return event, nil
}

func (s *syncService) Cancel(ctx context.Context, libraryID uuid.UUID) error {
	if _, err := s.libraries.GetByID(ctx, libraryID); err != nil {
		return err
	}

	syncing, err := s.syncState.IsSyncing(ctx, libraryID)
	if err != nil {
		return fmt.Errorf("failed to check sync state: %w", err)
	}
	if !syncing {
		return models.ErrNoActiveSync
	}

	// Deleting the lock signals the worker; it checkpoints and records the
	// cancellation itself.
	if err := s.syncState.ForceReleaseLock(ctx, libraryID); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	s.logger.Info("Sync cancellation requested", zap.String("libraryID", libraryID.String()))
	return nil
}

func (s *syncService) History(ctx context.Context, libraryID uuid.UUID, limit int) ([]models.SyncOperation, error) {
	if _, err := s.libraries.GetByID(ctx, libraryID); err != nil {
		return nil, err
	}
	return s.operations.ListByLibrary(ctx, libraryID, limit)
}

func progressStatusFor(status models.LibrarySyncStatus) models.ProgressStatus {
	switch status {
	case models.SyncStatusInProgress:
		return models.ProgressSyncing
	case models.SyncStatusCompleted:
		return models.ProgressCompleted
	case models.SyncStatusFailed:
		return models.ProgressFailed
	case models.SyncStatusRateLimited:
		return models.ProgressRateLimited
	case models.SyncStatusCancelled:
		return models.ProgressCancelled
	default:
		return models.ProgressStarting
	}
}
