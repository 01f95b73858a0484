package service

import (
	"context"
	"sync"
	"time"

	"game-library-server/shared/constants"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/messaging"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// snapshotTTL bounds how long a stale snapshot is served by the status
// endpoint after the worker stops updating it.
const snapshotTTL = time.Hour

// Flush cadence: at most every flushEveryGames games or flushEvery elapsed,
// whichever comes first. Terminal events always flush.
const (
	flushEveryGames = 10
	flushEvery      = 2 * time.Second
)

// ProgressPublisher fans finished progress documents out to the snapshot
// store (for polling) and the event bus (for realtime subscribers).
type ProgressPublisher struct {
	snapshots interfaces.ProgressSnapshotRepository
	events    interfaces.EventPublisher
	logger    *zap.Logger
}

// NewProgressPublisher creates a ProgressPublisher.
func NewProgressPublisher(snapshots interfaces.ProgressSnapshotRepository, events interfaces.EventPublisher, logger *zap.Logger) *ProgressPublisher {
	return &ProgressPublisher{
		snapshots: snapshots,
		events:    events,
		logger:    logger.Named("ProgressPublisher"),
	}
}

// Tracker accumulates the progress of one sync operation and flushes it on
// the configured cadence. Not safe for concurrent use; one worker owns it.
type Tracker struct {
	pub   *ProgressPublisher
	event models.ProgressEvent

	lastFlushAt        time.Time
	lastFlushProcessed int
}

// NewTracker starts tracking one operation.
func (p *ProgressPublisher) NewTracker(operationID, libraryID uuid.UUID, platform string) *Tracker {
	now := time.Now().UTC()
	return &Tracker{
		pub: p,
		event: models.ProgressEvent{
			OperationID: operationID,
			LibraryID:   libraryID,
			Platform:    platform,
			Status:      models.ProgressStarting,
			StartedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// Start flushes the starting event.
func (t *Tracker) Start(ctx context.Context, message string) {
	t.event.Status = models.ProgressStarting
	t.event.Message = message
	t.flush(ctx)
}

// SetTotal records the remote library size once known.
func (t *Tracker) SetTotal(total int) {
	t.event.GamesTotal = &total
}

// Update advances the counters and flushes when the cadence is due.
func (t *Tracker) Update(ctx context.Context, processed, added, updated int, current *models.CurrentGame) {
	t.event.Status = models.ProgressSyncing
	t.event.GamesProcessed = processed
	t.event.GamesAdded = added
	t.event.GamesUpdated = updated
	t.event.CurrentGame = current
	t.event.Message = ""

	due := processed-t.lastFlushProcessed >= flushEveryGames ||
		time.Since(t.lastFlushAt) >= flushEvery
	if due {
		t.flush(ctx)
	}
}

// AddError appends a non-fatal error message to the event.
func (t *Tracker) AddError(msg string) {
	t.event.Errors = append(t.event.Errors, msg)
}

// Terminal flushes the final event of the operation.
func (t *Tracker) Terminal(ctx context.Context, status models.ProgressStatus, message string) {
	t.event.Status = status
	t.event.Message = message
	t.event.CurrentGame = nil
	if status == models.ProgressCompleted {
		t.event.ProgressPercent = 100
	}
	t.flush(ctx)
}

// flush stamps derived fields, saves the snapshot and publishes the event.
func (t *Tracker) flush(ctx context.Context) {
	now := time.Now().UTC()
	t.event.Sequence++
	t.event.UpdatedAt = now

	if t.event.GamesTotal != nil && *t.event.GamesTotal > 0 && t.event.Status != models.ProgressCompleted {
		percent := float64(t.event.GamesProcessed) / float64(*t.event.GamesTotal) * 100
		if percent > t.event.ProgressPercent {
			t.event.ProgressPercent = percent
		}
	}
	if elapsed := now.Sub(t.event.StartedAt).Minutes(); elapsed > 0 {
		t.event.RatePerMinute = float64(t.event.GamesProcessed) / elapsed
	}

	t.lastFlushAt = now
	t.lastFlushProcessed = t.event.GamesProcessed

	if err := t.pub.snapshots.Save(ctx, &t.event, snapshotTTL); err != nil {
		t.pub.logger.Warn("Failed to save progress snapshot", zap.Error(err),
			zap.String("libraryID", t.event.LibraryID.String()))
	}

	routingKey, eventType := routeForStatus(t.event.Status)
	if err := t.pub.events.PublishEvent(ctx, routingKey, eventType, t.event); err != nil {
		t.pub.logger.Warn("Failed to publish progress event", zap.Error(err),
			zap.String("libraryID", t.event.LibraryID.String()))
	}
}

func routeForStatus(status models.ProgressStatus) (routingKey, eventType string) {
	switch status {
	case models.ProgressStarting:
		return messaging.RoutingKeySyncStarted, constants.WSEventSyncStarted
	case models.ProgressCompleted:
		return messaging.RoutingKeySyncCompleted, constants.WSEventSyncCompleted
	case models.ProgressFailed:
		return messaging.RoutingKeySyncFailed, constants.WSEventSyncFailed
	case models.ProgressRateLimited:
		return messaging.RoutingKeySyncRateLimited, constants.WSEventSyncRateLimited
	case models.ProgressCancelled:
		return messaging.RoutingKeySyncCancelled, constants.WSEventSyncCancelled
	default:
		return messaging.RoutingKeySyncProgress, constants.WSEventSyncProgress
	}
}

// RateLimitWarner throttles rate_limit_warning events to one per platform
// per minute across all workers of this process.
type RateLimitWarner struct {
	events interfaces.EventPublisher
	logger *zap.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewRateLimitWarner creates a RateLimitWarner.
func NewRateLimitWarner(events interfaces.EventPublisher, logger *zap.Logger) *RateLimitWarner {
	return &RateLimitWarner{
		events:   events,
		logger:   logger.Named("RateLimitWarner"),
		lastSent: make(map[string]time.Time),
	}
}

// Warn publishes a rate_limit_warning unless one was sent for the platform
// within the last minute.
func (w *RateLimitWarner) Warn(ctx context.Context, platform string, usageRatio float64, delay time.Duration) {
	w.mu.Lock()
	if time.Since(w.lastSent[platform]) < time.Minute {
		w.mu.Unlock()
		return
	}
	w.lastSent[platform] = time.Now()
	w.mu.Unlock()

	payload := messaging.RateLimitWarningPayload{
		Platform:   platform,
		UsageRatio: usageRatio,
		DelayMs:    delay.Milliseconds(),
		Message:    "platform API budget nearly exhausted, sync is slowing down",
	}
	if err := w.events.PublishEvent(ctx, messaging.RoutingKeyRateLimitWarn, constants.WSEventRateLimitWarning, payload); err != nil {
		w.logger.Warn("Failed to publish rate limit warning", zap.Error(err),
			zap.String("platform", platform), zap.Duration("delay", delay))
	}
}
