package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"game-library-server/shared/models"

	"github.com/docker/docker/client"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// fakeClock drives the limiter deterministically: sleeps advance the clock
// instead of blocking the test.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

type RedisLimiterSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
}

func (s *RedisLimiterSuite) SetupSuite() {
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
}

func (s *RedisLimiterSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisLimiterSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushAll(s.ctx).Err())
}

func (s *RedisLimiterSuite) newLimiter(policy Policy, clock *fakeClock) *RedisLimiter {
	l := NewRedisLimiter(s.client, map[string]Policy{"steam": policy}, zap.NewNop())
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l
}

func (s *RedisLimiterSuite) TestAcquireUnderBufferRecordsImmediately() {
	t := s.T()
	clock := newFakeClock()
	l := s.newLimiter(Policy{WindowCalls: 100, Window: 300 * time.Second, BufferFraction: 0.8}, clock)

	_, err := l.Acquire(s.ctx, "steam", 1)
	require.NoError(t, err)
	require.Empty(t, clock.Sleeps(), "no slowdown expected below the buffer threshold")

	count, err := s.client.ZCard(s.ctx, windowKey("steam")).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func (s *RedisLimiterSuite) TestAcquireNearBufferSlowsDown() {
	t := s.T()
	clock := newFakeClock()
	l := s.newLimiter(Policy{WindowCalls: 100, Window: 300 * time.Second, BufferFraction: 0.8}, clock)

	for i := 0; i < 90; i++ {
		s.seedCall(clock.Now())
	}

	_, err := l.Acquire(s.ctx, "steam", 1)
	require.NoError(t, err)

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 1, "exactly one adaptive slowdown expected")
	// ratio 0.9, buffer 0.8: delay = 0.1 + 0.5^2 * 4.9 = 1.325s
	require.InDelta(t, 1.325, sleeps[0].Seconds(), 0.01)
}

func (s *RedisLimiterSuite) TestAcquireFullWindowWaitsForOldest() {
	t := s.T()
	clock := newFakeClock()
	l := s.newLimiter(Policy{WindowCalls: 10, Window: 300 * time.Second, BufferFraction: 0.8}, clock)

	oldest := clock.Now().Add(-100 * time.Second)
	s.seedCall(oldest)
	for i := 0; i < 9; i++ {
		s.seedCall(clock.Now())
	}

	_, err := l.Acquire(s.ctx, "steam", 1)
	require.NoError(t, err)

	sleeps := clock.Sleeps()
	require.NotEmpty(t, sleeps)
	// The first sleep must cover the 200s left until the oldest call expires.
	require.GreaterOrEqual(t, sleeps[0], 200*time.Second)

	// Never more than windowCalls entries inside the rolling window.
	cutoff := clock.Now().Add(-300 * time.Second).UnixMilli()
	inWindow, err := s.client.ZCount(s.ctx, windowKey("steam"),
		fmt.Sprintf("%d", cutoff), "+inf").Result()
	require.NoError(t, err)
	require.LessOrEqual(t, inWindow, int64(10))
}

func (s *RedisLimiterSuite) TestDailyCapExceeded() {
	t := s.T()
	clock := newFakeClock()
	l := s.newLimiter(Policy{WindowCalls: 100, Window: 300 * time.Second, DailyCap: 3}, clock)

	for i := 0; i < 3; i++ {
		_, err := l.Acquire(s.ctx, "steam", 1)
		require.NoError(t, err)
	}

	_, err := l.Acquire(s.ctx, "steam", 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrRateExceededDaily))

	// The failed acquire must not burn daily budget.
	total, err := s.client.Get(s.ctx, dailyKey("steam", clock.Now())).Int64()
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
}

func (s *RedisLimiterSuite) TestUnknownPlatformUnlimited() {
	t := s.T()
	clock := newFakeClock()
	l := s.newLimiter(SteamPolicy, clock)

	waited, err := l.Acquire(s.ctx, "gog", 1)
	require.NoError(t, err)
	require.Zero(t, waited)
}

func (s *RedisLimiterSuite) TestUsageRatio() {
	t := s.T()
	clock := newFakeClock()
	l := s.newLimiter(Policy{WindowCalls: 10, Window: 300 * time.Second}, clock)

	for i := 0; i < 5; i++ {
		s.seedCall(clock.Now())
	}

	ratio, err := l.Usage(s.ctx, "steam")
	require.NoError(t, err)
	require.InDelta(t, 0.5, ratio, 0.001)
}

// seedCall records one window entry directly, bypassing Acquire.
func (s *RedisLimiterSuite) seedCall(at time.Time) {
	err := s.client.ZAdd(s.ctx, windowKey("steam"), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: fmt.Sprintf("seed:%d:%d", at.UnixMilli(), time.Now().UnixNano()),
	}).Err()
	require.NoError(s.T(), err)
}

func TestRedisLimiterSuite(t *testing.T) {
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

	suite.Run(t, new(RedisLimiterSuite))
}
