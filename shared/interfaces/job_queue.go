package interfaces

import (
	"context"
	"time"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// JobQueue defines the interface for the prioritized background job queue.
type JobQueue interface {
	// Enqueue stores the job payload and makes it runnable, immediately or
	// at job.NotBefore when set. Queue defaults (timeout, max attempts,
	// result TTLs) are filled in for zero-valued fields.
	Enqueue(ctx context.Context, job *models.Job) error

	// Dequeue pops the next runnable job, draining queues in the given
	// order. Blocks up to block and returns (nil, nil) when nothing
	// became runnable.
	Dequeue(ctx context.Context, queues []string, block time.Duration) (*models.Job, error)

	// StoreResult retains the outcome of an executed job. TTL comes from
	// the job's ResultTTLSec or FailureTTLSec depending on success.
	StoreResult(ctx context.Context, job *models.Job, res *models.JobResult) error

	// GetResult retrieves a retained result.
	// Returns models.ErrJobNotFound when the result expired or never existed.
	GetResult(ctx context.Context, jobID uuid.UUID) (*models.JobResult, error)

	// Depth returns the number of runnable jobs per queue, scheduled
	// jobs not yet due excluded.
	Depth(ctx context.Context, queue string) (int64, error)
}
