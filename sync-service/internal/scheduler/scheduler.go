package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"go.uber.org/zap"
)

// Scheduler periodically enqueues default-priority sync jobs for every
// sync-enabled library whose last sync is older than the interval.
type Scheduler struct {
	libraries interfaces.LibraryRepository
	syncState interfaces.SyncStateRepository
	queue     interfaces.JobQueue
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a Scheduler.
func New(libraries interfaces.LibraryRepository, syncState interfaces.SyncStateRepository, queue interfaces.JobQueue, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		libraries: libraries,
		syncState: syncState,
		queue:     queue,
		interval:  interval,
		logger:    logger.Named("Scheduler"),
	}
}

// Run blocks until ctx is cancelled, running one pass per interval. The
// first pass happens one minute after startup so the services settle first.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

	startup := time.NewTimer(time.Minute)
	defer startup.Stop()
	select {
	case <-ctx.Done():
		return
	case <-startup.C:
		s.runPass(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	libraries, err := s.libraries.ListSyncEnabled(ctx)
	if err != nil {
		s.logger.Error("Failed to list sync-enabled libraries", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-s.interval)
	enqueued := 0
	for i := range libraries {
		lib := &libraries[i]
		if lib.LastSyncAt != nil && lib.LastSyncAt.After(cutoff) {
			continue
		}
		// Skip libraries with a sync already running or queued.
		if syncing, err := s.syncState.IsSyncing(ctx, lib.ID); err == nil && syncing {
			continue
		}

		args, err := json.Marshal(models.SyncJobArgs{
			LibraryID: lib.ID,
			SyncType:  models.SyncTypeIncremental,
		})
		if err != nil {
			continue
		}
		job := &models.Job{
			Queue:    models.QueueDefault,
			Function: models.JobSyncLibrary,
			Args:     args,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Error("Failed to enqueue scheduled sync", zap.Error(err),
				zap.String("libraryID", lib.ID.String()))
			continue
		}
		enqueued++
	}

	s.logger.Info("Scheduler pass finished",
		zap.Int("candidates", len(libraries)), zap.Int("enqueued", enqueued))
}
