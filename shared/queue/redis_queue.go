package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure RedisQueue implements JobQueue
var _ interfaces.JobQueue = (*RedisQueue)(nil)

// queueDefaults fill zero-valued envelope fields on enqueue.
type queueDefaults struct {
	timeout     time.Duration
	maxAttempts int
}

var defaultsByQueue = map[string]queueDefaults{
	models.QueueHigh:    {timeout: 2 * time.Hour, maxAttempts: 1},
	models.QueueDefault: {timeout: 2 * time.Hour, maxAttempts: 3},
	models.QueueLow:     {timeout: 2 * time.Hour, maxAttempts: 5},
}

const (
	defaultResultTTL = 24 * time.Hour
	// payloadTTL bounds orphaned payloads of jobs that never got dequeued.
	payloadTTL = 7 * 24 * time.Hour
	// pollSlice is the longest single BRPOP block, so scheduled jobs get
	// promoted at least this often.
	pollSlice = time.Second
	// promoteBatch caps how many due scheduled jobs one dequeue promotes.
	promoteBatch = 100
)

// RedisQueue is the persistent priority job queue. Each queue is a Redis
// list (LPUSH head, BRPOP tail keeps FIFO); jobs with a notBefore park in a
// scheduled ZSET scored by ready time and are promoted by the dequeue loop.
type RedisQueue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisQueue creates a Redis-backed JobQueue.
func NewRedisQueue(client *redis.Client, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		logger: logger.Named("JobQueue"),
	}
}

func listKey(queue string) string    { return "queue:" + queue }
func payloadKey(id uuid.UUID) string { return "job:" + id.String() }
func resultKey(id uuid.UUID) string  { return "job:" + id.String() + ":result" }
func scheduledKey() string           { return "queue:scheduled" }

func (q *RedisQueue) Enqueue(ctx context.Context, job *models.Job) error {
	defs, ok := defaultsByQueue[job.Queue]
	if !ok {
		return models.ErrQueueUnknown
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	if job.TimeoutMs == 0 {
		job.TimeoutMs = defs.timeout.Milliseconds()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = defs.maxAttempts
	}
	if job.ResultTTLSec == 0 {
		job.ResultTTLSec = int(defaultResultTTL.Seconds())
	}
	if job.FailureTTLSec == 0 {
		job.FailureTTLSec = int(defaultResultTTL.Seconds())
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.Set(ctx, payloadKey(job.ID), payload, payloadTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job payload: %w", err)
	}

	if job.NotBefore != nil && job.NotBefore.After(time.Now()) {
		err = q.client.ZAdd(ctx, scheduledKey(), redis.Z{
			Score:  float64(job.NotBefore.UnixMilli()),
			Member: job.ID.String(),
		}).Err()
	} else {
		err = q.client.LPush(ctx, listKey(job.Queue), job.ID.String()).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.logger.Info("Job enqueued",
		zap.String("jobID", job.ID.String()),
		zap.String("queue", job.Queue),
		zap.String("function", job.Function),
		zap.Timep("notBefore", job.NotBefore))
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, block time.Duration) (*models.Job, error) {
	keys := make([]string, len(queues))
	for i, name := range queues {
		keys[i] = listKey(name)
	}
	deadline := time.Now().Add(block)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := q.promoteDue(ctx); err != nil {
			return nil, err
		}

		slice := time.Until(deadline)
		if slice <= 0 {
			return nil, nil
		}
		if slice > pollSlice {
			slice = pollSlice
		}

		// BRPOP checks keys left to right, which is exactly the priority
		// order the caller passed in.
		res, err := q.client.BRPop(ctx, slice, keys...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to pop job: %w", err)
		}

		jobID, err := uuid.Parse(res[1])
		if err != nil {
			q.logger.Error("Discarding malformed job id from queue", zap.String("value", res[1]))
			continue
		}

		payload, err := q.client.GetDel(ctx, payloadKey(jobID)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Payload expired while the id sat in the list.
				q.logger.Warn("Job payload missing, skipping", zap.String("jobID", jobID.String()))
				continue
			}
			return nil, fmt.Errorf("failed to load job payload: %w", err)
		}

		var job models.Job
		if err := json.Unmarshal(payload, &job); err != nil {
			q.logger.Error("Corrupted job payload, skipping", zap.Error(err), zap.String("jobID", jobID.String()))
			continue
		}
		job.Attempt++
		return &job, nil
	}
}

// promoteDue moves scheduled jobs whose ready time has passed onto their
// queue list. ZRem arbitrates between concurrent promoters: only the caller
// that actually removed the member pushes it.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := time.Now().UnixMilli()
	ids, err := q.client.ZRangeByScore(ctx, scheduledKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read scheduled jobs: %w", err)
	}

	for _, idStr := range ids {
		removed, err := q.client.ZRem(ctx, scheduledKey(), idStr).Result()
		if err != nil {
			return fmt.Errorf("failed to claim scheduled job: %w", err)
		}
		if removed == 0 {
			continue
		}

		jobID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		payload, err := q.client.Get(ctx, payloadKey(jobID)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("failed to load scheduled job payload: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal(payload, &job); err != nil {
			q.logger.Error("Corrupted scheduled job payload", zap.Error(err), zap.String("jobID", idStr))
			continue
		}
		if err := q.client.LPush(ctx, listKey(job.Queue), idStr).Err(); err != nil {
			return fmt.Errorf("failed to promote scheduled job: %w", err)
		}
		q.logger.Debug("Scheduled job promoted",
			zap.String("jobID", idStr), zap.String("queue", job.Queue))
	}
	return nil
}

func (q *RedisQueue) StoreResult(ctx context.Context, job *models.Job, res *models.JobResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}
	ttl := time.Duration(job.ResultTTLSec) * time.Second
	if !res.Success {
		ttl = time.Duration(job.FailureTTLSec) * time.Second
	}
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	if err := q.client.Set(ctx, resultKey(job.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job result: %w", err)
	}
	return nil
}

func (q *RedisQueue) GetResult(ctx context.Context, jobID uuid.UUID) (*models.JobResult, error) {
	payload, err := q.client.Get(ctx, resultKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job result: %w", err)
	}
	var res models.JobResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("corrupted job result for %s: %w", jobID, err)
	}
	return &res, nil
}

func (q *RedisQueue) Depth(ctx context.Context, queue string) (int64, error) {
	n, err := q.client.LLen(ctx, listKey(queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return n, nil
}
