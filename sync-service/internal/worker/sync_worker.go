package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"game-library-server/shared/constants"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/messaging"
	"game-library-server/shared/models"
	"game-library-server/sync-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Importer abstracts the per-batch catalog import so the worker can be
// tested against an in-memory implementation.
type Importer interface {
	UpsertGamesBatch(ctx context.Context, libraryID, operationID uuid.UUID, games []*models.NormalizedGame) (*service.BatchResult, error)
}

// CacheInvalidator is implemented by adapters that keep per-user snapshots.
// Force syncs drop the snapshot so the remote library is refetched.
type CacheInvalidator interface {
	InvalidateCache(userIdentifier string)
}

// UsageReporter is implemented by limiters that can report current window
// usage, feeding the rate_limit_warning event.
type UsageReporter interface {
	Usage(ctx context.Context, platformCode string) (float64, error)
}

// Options tune the sync worker state machine.
type Options struct {
	LockTTL     time.Duration
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (o *Options) fillDefaults() {
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Minute
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 2 * time.Minute
	}
}

// Deps bundles the collaborators of the sync worker.
type Deps struct {
	Adapters   map[string]interfaces.PlatformAdapter
	Libraries  interfaces.LibraryRepository
	Operations interfaces.SyncOperationRepository
	SyncState  interfaces.SyncStateRepository
	Limiter    interfaces.RateLimiter
	Importer   Importer
	Progress   *service.ProgressPublisher
	Warner     *service.RateLimitWarner
	Events     interfaces.EventPublisher
	Queue      interfaces.JobQueue
	Logger     *zap.Logger
}

// SyncWorker executes library sync jobs: lock, checkpoint, batched fetch
// and import, progress publishing, and the failure state machine.
type SyncWorker struct {
	holderID string
	opts     Options
	deps     Deps
	logger   *zap.Logger

	// sleep is injectable so tests do not wait on real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSyncWorker creates a SyncWorker. holderID identifies this worker as a
// lock owner and must be unique per worker goroutine.
func NewSyncWorker(holderID string, deps Deps, opts Options) *SyncWorker {
	opts.fillDefaults()
	return &SyncWorker{
		holderID: holderID,
		opts:     opts,
		deps:     deps,
		logger:   deps.Logger.Named("SyncWorker").With(zap.String("holderID", holderID)),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunSyncJob executes one sync_library job.
// Returns models.ErrSyncInProgress when the library is locked and force is
// not set; the job is then a successful no-op.
func (w *SyncWorker) RunSyncJob(ctx context.Context, job *models.Job) (*models.SyncSummary, error) {
	started := time.Now()

	var args models.SyncJobArgs
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return nil, models.NewSyncError(models.SyncErrPermanent, fmt.Errorf("invalid sync job args: %w", err))
	}

	lib, err := w.deps.Libraries.GetByID(ctx, args.LibraryID)
	if err != nil {
		return nil, models.NewSyncError(models.SyncErrNotFound, err)
	}
	adapter, ok := w.deps.Adapters[lib.PlatformCode]
	if !ok {
		return nil, models.NewSyncError(models.SyncErrPermanent,
			fmt.Errorf("no adapter registered for platform %q", lib.PlatformCode))
	}

	logger := w.logger.With(
		zap.String("libraryID", lib.ID.String()),
		zap.String("platform", lib.PlatformCode))

	// Lock handling: a held lock means another worker is syncing. Force
	// releases it; the evicted holder notices on its next heartbeat.
	holder, err := w.deps.SyncState.LockHolder(ctx, lib.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock holder: %w", err)
	}
	if holder != "" && holder != w.holderID {
		if !args.Force {
			logger.Info("Library already syncing, skipping", zap.String("holder", holder))
			return nil, models.ErrSyncInProgress
		}
		if err := w.deps.SyncState.ForceReleaseLock(ctx, lib.ID); err != nil {
			return nil, fmt.Errorf("failed to force-release lock: %w", err)
		}
	}
	if args.Force {
		if inv, ok := adapter.(CacheInvalidator); ok {
			inv.InvalidateCache(lib.UserIdentifier)
		}
	}

	acquired, err := w.deps.SyncState.AcquireLock(ctx, lib.ID, w.holderID, w.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return nil, models.ErrSyncInProgress
	}
	released := false
	defer func() {
		if !released {
			_ = w.deps.SyncState.ReleaseLock(context.WithoutCancel(ctx), lib.ID, w.holderID)
		}
	}()

	cp, err := w.loadOrInitCheckpoint(ctx, lib, &args)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("operationID", cp.OperationID.String()))
	if cp.LastOffset > 0 {
		logger.Info("Resuming sync from checkpoint", zap.Int("offset", cp.LastOffset))
	}

	w.setLibraryStatus(ctx, lib.ID, models.SyncStatusInProgress, nil, nil)
	tracker := w.deps.Progress.NewTracker(cp.OperationID, lib.ID, lib.PlatformCode)
	tracker.Start(ctx, "sync started")

	// Heartbeat renews the lock; losing it trips the pause flag.
	var paused atomic.Bool
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeat(hbCtx, lib.ID, &paused)

	summary, err := w.runSync(ctx, job, lib, adapter, cp, tracker, &paused, logger)
	if summary != nil {
		summary.DurationMs = time.Since(started).Milliseconds()
		metricSyncDuration(time.Since(started))
	}
	released = true
	_ = w.deps.SyncState.ReleaseLock(context.WithoutCancel(ctx), lib.ID, w.holderID)
	return summary, err
}

// runSync drives the batch loop once the lock and checkpoint are in place.
func (w *SyncWorker) runSync(
	ctx context.Context,
	job *models.Job,
	lib *models.UserLibrary,
	adapter interfaces.PlatformAdapter,
	cp *models.SyncCheckpoint,
	tracker *service.Tracker,
	paused *atomic.Bool,
	logger *zap.Logger,
) (*models.SyncSummary, error) {
	total, err := w.countGames(ctx, adapter, lib)
	if err != nil {
		return w.finishFailure(ctx, job, lib, cp, tracker, err, logger)
	}
	tracker.SetTotal(total)
	logger.Info("Remote library counted", zap.Int("total", total))

	errorsCount := 0
	for cp.LastOffset < total {
		if w.shouldPause(ctx, lib.ID, paused) {
			return w.finishCancelled(ctx, lib, cp, tracker, logger)
		}

		batch, err := w.fetchBatch(ctx, adapter, lib, cp.LastOffset)
		if err != nil {
			return w.finishFailure(ctx, job, lib, cp, tracker, err, logger)
		}
		if len(batch) == 0 {
			break
		}

		normalized := make([]*models.NormalizedGame, 0, len(batch))
		for _, raw := range batch {
			ng, err := adapter.Transform(raw)
			if err != nil {
				errorsCount++
				tracker.AddError(fmt.Sprintf("failed to transform game %s: %v", raw.PlatformGameID, err))
				logger.Warn("Skipping untransformable game",
					zap.String("platformGameID", raw.PlatformGameID), zap.Error(err))
				continue
			}
			normalized = append(normalized, ng)
		}

		res, err := w.importBatch(ctx, lib.ID, cp.OperationID, normalized)
		if err != nil {
			return w.finishFailure(ctx, job, lib, cp, tracker, err, logger)
		}

		cp.LastOffset += len(batch)
		cp.GamesSynced += len(normalized)
		cp.GamesAdded += res.Added
		cp.GamesUpdated += res.Updated
		cp.UpdatedAt = time.Now().UTC()
		cp.Status = models.SyncStatusInProgress
		if err := w.deps.SyncState.SaveCheckpoint(ctx, cp); err != nil {
			logger.Warn("Failed to save checkpoint", zap.Error(err))
		}
		if err := w.deps.Operations.AddCounters(ctx, cp.OperationID, len(normalized), res.Added, res.Updated, errorsCount); err != nil {
			logger.Warn("Failed to update operation counters", zap.Error(err))
		}
		errorsCount = 0
		metricGamesProcessed(len(normalized))

		var current *models.CurrentGame
		if len(normalized) > 0 {
			last := normalized[len(normalized)-1]
			current = &models.CurrentGame{Title: last.Title, PlatformGameID: last.PlatformGameID}
		}
		tracker.Update(ctx, cp.GamesSynced, cp.GamesAdded, cp.GamesUpdated, current)
		w.publishGameEvents(ctx, lib, res)
	}

	return w.finishCompleted(ctx, lib, adapter, cp, tracker, logger)
}

func (w *SyncWorker) loadOrInitCheckpoint(ctx context.Context, lib *models.UserLibrary, args *models.SyncJobArgs) (*models.SyncCheckpoint, error) {
	if !args.Force {
		cp, err := w.deps.SyncState.LoadCheckpoint(ctx, lib.ID)
		if err != nil && !errors.Is(err, models.ErrCheckpointNotFound) {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil && cp.PlatformCode == lib.PlatformCode && resumable(cp.Status) {
			if err := w.deps.Operations.SetStatus(ctx, cp.OperationID, models.OperationInProgress, nil); err != nil {
				return nil, fmt.Errorf("failed to reopen operation: %w", err)
			}
			return cp, nil
		}
	}

	syncType := args.SyncType
	if syncType == "" {
		syncType = models.SyncTypeManual
	}
	now := time.Now().UTC()
	op := &models.SyncOperation{
		ID:        uuid.New(),
		LibraryID: lib.ID,
		Type:      syncType,
		Status:    models.OperationStarted,
		StartedAt: now,
	}
	if err := w.deps.Operations.Create(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create sync operation: %w", err)
	}

	cp := &models.SyncCheckpoint{
		LibraryID:      lib.ID,
		OperationID:    op.ID,
		PlatformCode:   lib.PlatformCode,
		UserIdentifier: lib.UserIdentifier,
		StartedAt:      now,
		UpdatedAt:      now,
		Status:         models.SyncStatusInProgress,
	}
	if err := w.deps.SyncState.SaveCheckpoint(ctx, cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}
	return cp, nil
}

func resumable(status models.LibrarySyncStatus) bool {
	return status == models.SyncStatusInProgress || status == models.SyncStatusRateLimited
}

// heartbeat renews the lock at a third of its TTL. A failed renewal means
// the lock was cancelled or taken over; the worker must stop.
func (w *SyncWorker) heartbeat(ctx context.Context, libraryID uuid.UUID, paused *atomic.Bool) {
	ticker := time.NewTicker(w.opts.LockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.deps.SyncState.RenewLock(ctx, libraryID, w.holderID, w.opts.LockTTL); err != nil {
				if errors.Is(err, models.ErrLockNotHeld) {
					paused.Store(true)
					return
				}
				w.logger.Warn("Failed to renew lock", zap.Error(err),
					zap.String("libraryID", libraryID.String()))
			}
		}
	}
}

// shouldPause reports whether the sync must stop: process shutdown, lost
// heartbeat, or the lock deleted out from under us (cancellation).
func (w *SyncWorker) shouldPause(ctx context.Context, libraryID uuid.UUID, paused *atomic.Bool) bool {
	if paused.Load() || ctx.Err() != nil {
		return true
	}
	holder, err := w.deps.SyncState.LockHolder(ctx, libraryID)
	if err != nil {
		return false
	}
	return holder != w.holderID
}

// acquire reserves one platform API call slot, surfacing big delays as
// rate_limit_warning events.
func (w *SyncWorker) acquire(ctx context.Context, platformCode string) error {
	delay, err := w.deps.Limiter.Acquire(ctx, platformCode, 1)
	if err != nil {
		return err
	}
	metricRateLimitDelay(delay)
	if delay > time.Second && w.deps.Warner != nil {
		var ratio float64
		if ur, ok := w.deps.Limiter.(UsageReporter); ok {
			ratio, _ = ur.Usage(ctx, platformCode)
		}
		w.deps.Warner.Warn(ctx, platformCode, ratio, delay)
	}
	return nil
}

func (w *SyncWorker) countGames(ctx context.Context, adapter interfaces.PlatformAdapter, lib *models.UserLibrary) (int, error) {
	var lastErr error
	for attempt := 0; attempt < w.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := w.backoff(ctx, attempt); err != nil {
				return 0, err
			}
		}
		if err := w.acquire(ctx, lib.PlatformCode); err != nil {
			return 0, err
		}
		total, err := adapter.CountGames(ctx, lib)
		if err == nil {
			return total, nil
		}
		if models.ClassifySyncError(err).Kind != models.SyncErrTransient {
			return 0, err
		}
		lastErr = err
	}
	return 0, lastErr
}

func (w *SyncWorker) fetchBatch(ctx context.Context, adapter interfaces.PlatformAdapter, lib *models.UserLibrary, offset int) ([]models.RawGame, error) {
	var lastErr error
	for attempt := 0; attempt < w.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := w.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := w.acquire(ctx, lib.PlatformCode); err != nil {
			return nil, err
		}
		batch, err := adapter.FetchBatch(ctx, lib, offset, w.opts.BatchSize)
		if err == nil {
			return batch, nil
		}
		if models.ClassifySyncError(err).Kind != models.SyncErrTransient {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (w *SyncWorker) importBatch(ctx context.Context, libraryID, operationID uuid.UUID, games []*models.NormalizedGame) (*service.BatchResult, error) {
	var lastErr error
	for attempt := 0; attempt < w.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := w.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		res, err := w.deps.Importer.UpsertGamesBatch(ctx, libraryID, operationID, games)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// backoff sleeps for an exponentially growing, fully jittered delay.
func (w *SyncWorker) backoff(ctx context.Context, attempt int) error {
	max := w.opts.BaseBackoff << uint(attempt)
	if max > w.opts.MaxBackoff {
		max = w.opts.MaxBackoff
	}
	return w.sleep(ctx, time.Duration(rand.Int63n(int64(max))+1))
}

func (w *SyncWorker) publishGameEvents(ctx context.Context, lib *models.UserLibrary, res *service.BatchResult) {
	for _, ref := range res.AddedGames {
		payload := messaging.GameEventPayload{
			LibraryID:     lib.ID,
			GameID:        ref.GameID,
			Title:         ref.Title,
			Platform:      lib.PlatformCode,
			CoverImageURL: ref.CoverImageURL,
		}
		if err := w.deps.Events.PublishEvent(ctx, messaging.RoutingKeyGameAdded, constants.WSEventGameAdded, payload); err != nil {
			w.logger.Warn("Failed to publish game_added event", zap.Error(err))
		}
	}
	for _, ref := range res.UpdatedGames {
		payload := messaging.GameEventPayload{
			LibraryID:     lib.ID,
			GameID:        ref.GameID,
			Title:         ref.Title,
			Platform:      lib.PlatformCode,
			CoverImageURL: ref.CoverImageURL,
		}
		if err := w.deps.Events.PublishEvent(ctx, messaging.RoutingKeyGameUpdated, constants.WSEventGameUpdated, payload); err != nil {
			w.logger.Warn("Failed to publish game_updated event", zap.Error(err))
		}
	}
}

func (w *SyncWorker) finishCompleted(ctx context.Context, lib *models.UserLibrary, adapter interfaces.PlatformAdapter, cp *models.SyncCheckpoint, tracker *service.Tracker, logger *zap.Logger) (*models.SyncSummary, error) {
	now := time.Now().UTC()
	if err := w.deps.Operations.SetStatus(ctx, cp.OperationID, models.OperationCompleted, nil); err != nil {
		logger.Warn("Failed to complete operation", zap.Error(err))
	}
	w.setLibraryStatus(ctx, lib.ID, models.SyncStatusCompleted, nil, &now)
	if err := w.deps.SyncState.DeleteCheckpoint(ctx, lib.ID); err != nil {
		logger.Warn("Failed to delete checkpoint", zap.Error(err))
	}
	tracker.Terminal(ctx, models.ProgressCompleted, "sync completed")
	logger.Info("Sync completed",
		zap.Int("processed", cp.GamesSynced),
		zap.Int("added", cp.GamesAdded),
		zap.Int("updated", cp.GamesUpdated))

	// Enrichment: achievements are synced out of band on the low queue.
	if _, ok := adapter.(interfaces.AchievementProvider); ok {
		w.enqueueAchievementSync(ctx, lib.ID, logger)
	}

	return &models.SyncSummary{
		OperationID:    cp.OperationID,
		Status:         models.OperationCompleted,
		GamesProcessed: cp.GamesSynced,
		GamesAdded:     cp.GamesAdded,
		GamesUpdated:   cp.GamesUpdated,
	}, nil
}

func (w *SyncWorker) enqueueAchievementSync(ctx context.Context, libraryID uuid.UUID, logger *zap.Logger) {
	args, _ := json.Marshal(models.AchievementJobArgs{LibraryID: libraryID})
	job := &models.Job{
		Queue:    models.QueueLow,
		Function: models.JobSyncAchievements,
		Args:     args,
	}
	if err := w.deps.Queue.Enqueue(ctx, job); err != nil {
		logger.Warn("Failed to enqueue achievement sync", zap.Error(err))
	}
}

func (w *SyncWorker) finishCancelled(ctx context.Context, lib *models.UserLibrary, cp *models.SyncCheckpoint, tracker *service.Tracker, logger *zap.Logger) (*models.SyncSummary, error) {
	// The checkpoint survives so a later sync resumes where this one stopped.
	cp.Status = models.SyncStatusCancelled
	cp.UpdatedAt = time.Now().UTC()
	if err := w.deps.SyncState.SaveCheckpoint(ctx, cp); err != nil {
		logger.Warn("Failed to save checkpoint", zap.Error(err))
	}
	if err := w.deps.Operations.SetStatus(ctx, cp.OperationID, models.OperationCancelled, nil); err != nil {
		logger.Warn("Failed to mark operation cancelled", zap.Error(err))
	}
	w.setLibraryStatus(ctx, lib.ID, models.SyncStatusCancelled, nil, nil)
	tracker.Terminal(ctx, models.ProgressCancelled, "sync cancelled")
	logger.Info("Sync cancelled", zap.Int("processed", cp.GamesSynced))

	return &models.SyncSummary{
		OperationID:    cp.OperationID,
		Status:         models.OperationCancelled,
		GamesProcessed: cp.GamesSynced,
		GamesAdded:     cp.GamesAdded,
		GamesUpdated:   cp.GamesUpdated,
	}, nil
}

func (w *SyncWorker) finishFailure(ctx context.Context, job *models.Job, lib *models.UserLibrary, cp *models.SyncCheckpoint, tracker *service.Tracker, cause error, logger *zap.Logger) (*models.SyncSummary, error) {
	se := models.ClassifySyncError(cause)

	if se.Kind == models.SyncErrRateLimited || errors.Is(cause, models.ErrRateExceededDaily) {
		return w.deferRateLimited(ctx, job, lib, cp, tracker, se, cause, logger)
	}

	msg := cause.Error()
	cp.Status = models.SyncStatusFailed
	cp.Error = &msg
	cp.UpdatedAt = time.Now().UTC()
	if err := w.deps.SyncState.SaveCheckpoint(ctx, cp); err != nil {
		logger.Warn("Failed to save checkpoint", zap.Error(err))
	}
	if err := w.deps.Operations.SetStatus(ctx, cp.OperationID, models.OperationFailed, &msg); err != nil {
		logger.Warn("Failed to mark operation failed", zap.Error(err))
	}
	w.setLibraryStatus(ctx, lib.ID, models.SyncStatusFailed, &msg, nil)
	tracker.Terminal(ctx, models.ProgressFailed, msg)
	logger.Error("Sync failed", zap.String("kind", string(se.Kind)), zap.Error(cause))

	// Scheduled syncs failing on credentials need a human; broadcast it.
	if se.Kind == models.SyncErrAuth && job.Queue == models.QueueDefault {
		payload := messaging.NotificationPayload{
			Severity: "warning",
			Title:    "Library sync authentication failed",
			Message:  fmt.Sprintf("scheduled sync of library %s failed: platform credentials need repair", lib.ID),
		}
		if err := w.deps.Events.PublishEvent(ctx, messaging.RoutingKeyNotification, constants.WSEventSystemNotification, payload); err != nil {
			logger.Warn("Failed to publish system notification", zap.Error(err))
		}
	}

	summary := &models.SyncSummary{
		OperationID:    cp.OperationID,
		Status:         models.OperationFailed,
		GamesProcessed: cp.GamesSynced,
		GamesAdded:     cp.GamesAdded,
		GamesUpdated:   cp.GamesUpdated,
		ErrorsCount:    1,
	}
	return summary, cause
}

// deferRateLimited parks the sync: checkpoint keeps the retry hint, the job
// re-enters the low queue after the platform's retry-after, the lock is
// freed so a manual sync can still take over.
func (w *SyncWorker) deferRateLimited(ctx context.Context, job *models.Job, lib *models.UserLibrary, cp *models.SyncCheckpoint, tracker *service.Tracker, se *models.SyncError, cause error, logger *zap.Logger) (*models.SyncSummary, error) {
	retryAfter := se.RetryAfter
	if errors.Is(cause, models.ErrRateExceededDaily) {
		retryAfter = untilNextUTCDay()
	}
	if retryAfter <= 0 {
		retryAfter = 5 * time.Minute
	}

	cp.Status = models.SyncStatusRateLimited
	cp.RetryAfterSec = int(retryAfter.Seconds())
	cp.UpdatedAt = time.Now().UTC()
	if err := w.deps.SyncState.SaveCheckpoint(ctx, cp); err != nil {
		logger.Warn("Failed to save checkpoint", zap.Error(err))
	}

	notBefore := time.Now().UTC().Add(retryAfter)
	requeued := &models.Job{
		Queue:     models.QueueLow,
		Function:  job.Function,
		Args:      job.Args,
		NotBefore: &notBefore,
	}
	if err := w.deps.Queue.Enqueue(ctx, requeued); err != nil {
		logger.Error("Failed to re-enqueue rate-limited sync", zap.Error(err))
	}

	msg := fmt.Sprintf("platform rate limited, retrying at %s", notBefore.Format(time.RFC3339))
	w.setLibraryStatus(ctx, lib.ID, models.SyncStatusRateLimited, &msg, nil)
	tracker.Terminal(ctx, models.ProgressRateLimited, msg)
	logger.Warn("Sync rate limited", zap.Duration("retryAfter", retryAfter))

	// The operation stays open; the re-enqueued job resumes it.
	return &models.SyncSummary{
		OperationID:    cp.OperationID,
		Status:         models.OperationInProgress,
		GamesProcessed: cp.GamesSynced,
		GamesAdded:     cp.GamesAdded,
		GamesUpdated:   cp.GamesUpdated,
	}, nil
}

func (w *SyncWorker) setLibraryStatus(ctx context.Context, libraryID uuid.UUID, status models.LibrarySyncStatus, syncError *string, lastSyncAt *time.Time) {
	if err := w.deps.Libraries.SetSyncStatus(ctx, libraryID, status, syncError, lastSyncAt); err != nil {
		w.logger.Warn("Failed to set library sync status", zap.Error(err),
			zap.String("libraryID", libraryID.String()), zap.String("status", string(status)))
	}
}

func untilNextUTCDay() time.Duration {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
