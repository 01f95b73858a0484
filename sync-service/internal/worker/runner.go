package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"go.uber.org/zap"
)

// dequeueBlock is how long one Dequeue call blocks before the loop rechecks
// the shutdown context.
const dequeueBlock = 5 * time.Second

// Runner owns the worker pool: every worker drains the job queue in
// priority order and dispatches jobs by function name.
type Runner struct {
	workers      int
	queue        interfaces.JobQueue
	deps         Deps
	opts         Options
	achievements *AchievementSyncer
	logger       *zap.Logger

	wg sync.WaitGroup
}

// NewRunner creates a Runner with the given pool size.
func NewRunner(workers int, queue interfaces.JobQueue, deps Deps, opts Options, achievements *AchievementSyncer, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		workers:      workers,
		queue:        queue,
		deps:         deps,
		opts:         opts,
		achievements: achievements,
		logger:       logger.Named("Runner"),
	}
}

// Run starts the pool and blocks until ctx is cancelled and every in-flight
// job has checkpointed and returned.
func (r *Runner) Run(ctx context.Context) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}

	r.logger.Info("Starting worker pool", zap.Int("workers", r.workers))
	for i := 0; i < r.workers; i++ {
		holderID := fmt.Sprintf("%s-%d-w%d", hostname, os.Getpid(), i)
		sw := NewSyncWorker(holderID, r.deps, r.opts)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.workLoop(ctx, sw)
		}()
	}
	r.wg.Wait()
	r.logger.Info("Worker pool drained")
}

func (r *Runner) workLoop(ctx context.Context, sw *SyncWorker) {
	queues := []string{models.QueueHigh, models.QueueDefault, models.QueueLow}
	for ctx.Err() == nil {
		job, err := r.queue.Dequeue(ctx, queues, dequeueBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("Failed to dequeue job", zap.Error(err))
			_ = sleepCtx(ctx, time.Second)
			continue
		}
		if job == nil {
			continue
		}
		r.execute(ctx, sw, job)
	}
}

func (r *Runner) execute(ctx context.Context, sw *SyncWorker, job *models.Job) {
	metricJobReceived(job.Function)
	logger := r.logger.With(
		zap.String("jobID", job.ID.String()),
		zap.String("function", job.Function),
		zap.String("queue", job.Queue),
		zap.Int("attempt", job.Attempt))
	logger.Info("Job started")

	jobCtx, cancel := context.WithTimeout(ctx, job.Timeout())
	defer cancel()

	started := time.Now()
	var (
		result  json.RawMessage
		execErr error
	)
	switch job.Function {
	case models.JobSyncLibrary:
		summary, err := sw.RunSyncJob(jobCtx, job)
		execErr = err
		if summary != nil {
			result, _ = json.Marshal(summary)
		}
	case models.JobSyncAchievements:
		execErr = r.achievements.RunAchievementJob(jobCtx, job)
	default:
		execErr = models.NewSyncError(models.SyncErrPermanent,
			fmt.Errorf("unknown job function %q", job.Function))
	}
	duration := time.Since(started)

	// A locked library is a successful no-op, not a failure to retry.
	if errors.Is(execErr, models.ErrSyncInProgress) {
		logger.Info("Job skipped, library already syncing")
		metricJobSucceeded(job.Function)
		r.storeResult(ctx, job, &models.JobResult{
			Success: true,
			Error:   models.ErrSyncInProgress.Error(),
		}, duration)
		return
	}

	if execErr == nil {
		logger.Info("Job finished", zap.Duration("duration", duration))
		metricJobSucceeded(job.Function)
		r.storeResult(ctx, job, &models.JobResult{Success: true, Result: result}, duration)
		return
	}

	se := models.ClassifySyncError(execErr)
	logger.Error("Job failed", zap.String("kind", string(se.Kind)),
		zap.Duration("duration", duration), zap.Error(execErr))
	metricJobFailed(job.Function, string(se.Kind))
	r.storeResult(ctx, job, &models.JobResult{
		Success: false,
		Result:  result,
		Error:   execErr.Error(),
	}, duration)

	r.maybeRetry(ctx, job, se, logger)
}

// maybeRetry re-enqueues retryable failures while attempts remain. Terminal
// kinds (auth, not found, permanent) are never retried automatically.
func (r *Runner) maybeRetry(ctx context.Context, job *models.Job, se *models.SyncError, logger *zap.Logger) {
	if se.Kind.IsTerminal() || job.Attempt >= job.MaxAttempts {
		return
	}

	retry := &models.Job{
		ID:            job.ID,
		Queue:         job.Queue,
		Function:      job.Function,
		Args:          job.Args,
		TimeoutMs:     job.TimeoutMs,
		MaxAttempts:   job.MaxAttempts,
		Attempt:       job.Attempt,
		ResultTTLSec:  job.ResultTTLSec,
		FailureTTLSec: job.FailureTTLSec,
	}
	if se.Kind == models.SyncErrRateLimited {
		retryAfter := se.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 5 * time.Minute
		}
		notBefore := time.Now().UTC().Add(retryAfter)
		retry.NotBefore = &notBefore
	}
	if err := r.queue.Enqueue(context.WithoutCancel(ctx), retry); err != nil {
		logger.Error("Failed to re-enqueue job for retry", zap.Error(err))
		return
	}
	logger.Info("Job re-enqueued for retry",
		zap.Int("attempt", job.Attempt), zap.Int("maxAttempts", job.MaxAttempts))
}

func (r *Runner) storeResult(ctx context.Context, job *models.Job, res *models.JobResult, duration time.Duration) {
	res.JobID = job.ID
	res.Queue = job.Queue
	res.Function = job.Function
	res.Attempt = job.Attempt
	res.FinishedAt = time.Now().UTC()
	res.DurationMs = duration.Milliseconds()

	if err := r.queue.StoreResult(context.WithoutCancel(ctx), job, res); err != nil {
		r.logger.Warn("Failed to store job result", zap.Error(err),
			zap.String("jobID", job.ID.String()))
	}
}
