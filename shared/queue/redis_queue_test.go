package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"game-library-server/shared/models"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RedisQueueSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
	queue     *RedisQueue
}

func (s *RedisQueueSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	host, err := s.container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.container.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())

	s.queue = NewRedisQueue(s.client, zap.NewNop())
}

func (s *RedisQueueSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisQueueSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushAll(s.ctx).Err())
}

func syncArgs(t *testing.T, libraryID uuid.UUID) json.RawMessage {
	args, err := json.Marshal(models.SyncJobArgs{LibraryID: libraryID, SyncType: models.SyncTypeManual})
	require.NoError(t, err)
	return args
}

func (s *RedisQueueSuite) TestEnqueueFillsQueueDefaults() {
	t := s.T()

	job := &models.Job{
		Queue:    models.QueueHigh,
		Function: models.JobSyncLibrary,
		Args:     syncArgs(t, uuid.New()),
	}
	require.NoError(t, s.queue.Enqueue(s.ctx, job))

	got, err := s.queue.Dequeue(s.ctx, []string{models.QueueHigh}, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, job.ID, got.ID)
	require.Equal(t, 1, got.MaxAttempts, "manual queue retries are left to the user")
	require.EqualValues(t, (2 * time.Hour).Milliseconds(), got.TimeoutMs)
	require.Equal(t, 1, got.Attempt)
}

func (s *RedisQueueSuite) TestEnqueueUnknownQueue() {
	err := s.queue.Enqueue(s.ctx, &models.Job{Queue: "urgent", Function: models.JobSyncLibrary})
	require.True(s.T(), errors.Is(err, models.ErrQueueUnknown))
}

func (s *RedisQueueSuite) TestDequeuePriorityOrder() {
	t := s.T()

	low := &models.Job{Queue: models.QueueLow, Function: models.JobSyncAchievements, Args: syncArgs(t, uuid.New())}
	require.NoError(t, s.queue.Enqueue(s.ctx, low))
	def := &models.Job{Queue: models.QueueDefault, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New())}
	require.NoError(t, s.queue.Enqueue(s.ctx, def))
	high := &models.Job{Queue: models.QueueHigh, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New())}
	require.NoError(t, s.queue.Enqueue(s.ctx, high))

	order := []string{models.QueueHigh, models.QueueDefault, models.QueueLow}
	var got []uuid.UUID
	for i := 0; i < 3; i++ {
		job, err := s.queue.Dequeue(s.ctx, order, 2*time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
		got = append(got, job.ID)
	}
	require.Equal(t, []uuid.UUID{high.ID, def.ID, low.ID}, got)
}

func (s *RedisQueueSuite) TestDequeueFIFOWithinQueue() {
	t := s.T()

	first := &models.Job{Queue: models.QueueDefault, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New())}
	require.NoError(t, s.queue.Enqueue(s.ctx, first))
	second := &models.Job{Queue: models.QueueDefault, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New())}
	require.NoError(t, s.queue.Enqueue(s.ctx, second))

	jobA, err := s.queue.Dequeue(s.ctx, []string{models.QueueDefault}, 2*time.Second)
	require.NoError(t, err)
	jobB, err := s.queue.Dequeue(s.ctx, []string{models.QueueDefault}, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, first.ID, jobA.ID)
	require.Equal(t, second.ID, jobB.ID)
}

func (s *RedisQueueSuite) TestNotBeforeDefersExecution() {
	t := s.T()

	ready := time.Now().Add(2 * time.Second)
	deferred := &models.Job{
		Queue:     models.QueueLow,
		Function:  models.JobSyncLibrary,
		Args:      syncArgs(t, uuid.New()),
		NotBefore: &ready,
	}
	require.NoError(t, s.queue.Enqueue(s.ctx, deferred))

	// Not runnable yet.
	job, err := s.queue.Dequeue(s.ctx, []string{models.QueueLow}, 500*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, job)

	// Becomes runnable once notBefore passes.
	job, err = s.queue.Dequeue(s.ctx, []string{models.QueueLow}, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, deferred.ID, job.ID)
}

func (s *RedisQueueSuite) TestDequeueEmptyReturnsNil() {
	job, err := s.queue.Dequeue(s.ctx, []string{models.QueueHigh}, 300*time.Millisecond)
	require.NoError(s.T(), err)
	require.Nil(s.T(), job)
}

func (s *RedisQueueSuite) TestResultRoundTripAndExpiry() {
	t := s.T()

	job := &models.Job{Queue: models.QueueDefault, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New())}
	require.NoError(t, s.queue.Enqueue(s.ctx, job))

	res := &models.JobResult{
		JobID:      job.ID,
		Queue:      job.Queue,
		Function:   job.Function,
		Success:    true,
		Attempt:    1,
		FinishedAt: time.Now().UTC(),
		DurationMs: 1200,
	}
	require.NoError(t, s.queue.StoreResult(s.ctx, job, res))

	got, err := s.queue.GetResult(s.ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, res.JobID, got.JobID)
	require.True(t, got.Success)

	_, err = s.queue.GetResult(s.ctx, uuid.New())
	require.True(t, errors.Is(err, models.ErrJobNotFound))
}

func (s *RedisQueueSuite) TestDepthCountsRunnableOnly() {
	t := s.T()

	require.NoError(t, s.queue.Enqueue(s.ctx, &models.Job{
		Queue: models.QueueDefault, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New()),
	}))
	future := time.Now().Add(time.Hour)
	require.NoError(t, s.queue.Enqueue(s.ctx, &models.Job{
		Queue: models.QueueDefault, Function: models.JobSyncLibrary, Args: syncArgs(t, uuid.New()),
		NotBefore: &future,
	}))

	depth, err := s.queue.Depth(s.ctx, models.QueueDefault)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth, "scheduled jobs are not runnable yet")
}

func TestRedisQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(RedisQueueSuite))
}
