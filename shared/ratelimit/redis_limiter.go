package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure RedisLimiter implements RateLimiter
var _ interfaces.RateLimiter = (*RedisLimiter)(nil)

const (
	// headPollInterval is how often a non-head waiter re-checks the queue.
	headPollInterval = 25 * time.Millisecond
	// windowEpsilon is added to full-window waits so the oldest entry has
	// definitely expired when we retry.
	windowEpsilon = 50 * time.Millisecond
	dailyTTL      = 24 * time.Hour
)

// countScript prunes expired entries and reports current usage.
// Returns {count, oldestScoreMs} (oldest is 0 when the window is empty).
var countScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local count = redis.call("ZCARD", KEYS[1])
local oldest = 0
local head = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
if head[2] then
    oldest = head[2]
end
return {count, oldest}`)

// recordScript prunes and records weight entries if the window still has
// room. Returns 1 on success, 0 when the window filled up meanwhile.
var recordScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local count = redis.call("ZCARD", KEYS[1])
local weight = tonumber(ARGV[3])
if count + weight > tonumber(ARGV[2]) then
    return 0
end
for i = 1, weight do
    redis.call("ZADD", KEYS[1], ARGV[4], ARGV[5] .. ":" .. i)
end
redis.call("PEXPIRE", KEYS[1], ARGV[6])
return 1`)

// RedisLimiter is a sliding-window limiter whose state lives in Redis, so
// every worker process draws from the same per-platform budget. Concurrent
// waiters are served strictly in wait-start order through a shared waiter
// queue.
type RedisLimiter struct {
	client   *redis.Client
	policies map[string]Policy
	logger   *zap.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRedisLimiter creates a limiter serving the given per-platform policies.
func NewRedisLimiter(client *redis.Client, policies map[string]Policy, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		policies: policies,
		logger:   logger.Named("RateLimiter"),
		now:      time.Now,
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

func windowKey(platform string) string { return fmt.Sprintf("ratelimit:%s:window", platform) }
func waitersKey(platform string) string {
	return fmt.Sprintf("ratelimit:%s:waiters", platform)
}
func dailyKey(platform string, day time.Time) string {
	return fmt.Sprintf("ratelimit:%s:daily:%s", platform, day.UTC().Format("20060102"))
}

// Acquire blocks until weight call slots fit inside the platform's window,
// then records them. The returned duration is how long the caller waited.
func (l *RedisLimiter) Acquire(ctx context.Context, platformCode string, weight int) (time.Duration, error) {
	policy, ok := l.policies[platformCode]
	if !ok {
		// Unknown platforms are not limited; adapters for new platforms
		// must register a policy before going live.
		return 0, nil
	}
	if weight <= 0 {
		weight = 1
	}

	start := l.now()
	waiterID := uuid.NewString()
	wKey := waitersKey(platformCode)

	if err := l.client.ZAdd(ctx, wKey, redis.Z{
		Score:  float64(start.UnixMilli()),
		Member: waiterID,
	}).Err(); err != nil {
		return 0, fmt.Errorf("failed to join rate limit waiter queue: %w", err)
	}
	defer l.client.ZRem(context.WithoutCancel(ctx), wKey, waiterID)
	// Stale waiters from crashed workers must not block the queue forever.
	l.client.Expire(ctx, wKey, 10*time.Minute)

	for {
		if err := ctx.Err(); err != nil {
			return l.now().Sub(start), err
		}

		head, err := l.client.ZRange(ctx, wKey, 0, 0).Result()
		if err != nil {
			return l.now().Sub(start), fmt.Errorf("failed to read rate limit waiter queue: %w", err)
		}
		if len(head) == 0 || head[0] != waiterID {
			if err := l.sleep(ctx, headPollInterval); err != nil {
				return l.now().Sub(start), err
			}
			continue
		}

		recorded, err := l.tryOnce(ctx, platformCode, policy, weight)
		if err != nil {
			return l.now().Sub(start), err
		}
		if recorded {
			waited := l.now().Sub(start)
			if waited > time.Second {
				l.logger.Debug("Rate limiter delayed caller",
					zap.String("platform", platformCode),
					zap.Duration("waited", waited))
			}
			return waited, nil
		}
	}
}

// tryOnce runs one head-of-queue attempt: full window waits, adaptive
// slowdown near the buffer threshold, immediate record otherwise.
func (l *RedisLimiter) tryOnce(ctx context.Context, platformCode string, policy Policy, weight int) (bool, error) {
	now := l.now()
	key := windowKey(platformCode)
	cutoff := now.Add(-policy.Window).UnixMilli()

	res, err := countScript.Run(ctx, l.client, []string{key}, cutoff).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	count, oldest := res[0], res[1]

	ratio := float64(count) / float64(policy.WindowCalls)
	if ratio >= 1.0 {
		// Window full: wait until the oldest recorded call rolls out.
		wait := time.UnixMilli(oldest).Add(policy.Window).Sub(now) + windowEpsilon
		if wait < windowEpsilon {
			wait = windowEpsilon
		}
		if err := l.sleep(ctx, wait); err != nil {
			return false, err
		}
		return false, nil
	}

	buffer := policy.bufferFraction()
	if ratio >= buffer {
		// Approaching the cap: quadratic slowdown from 0.1s up to 5s.
		frac := (ratio - buffer) / (1 - buffer)
		delay := time.Duration((0.1 + frac*frac*4.9) * float64(time.Second))
		if err := l.sleep(ctx, delay); err != nil {
			return false, err
		}
	}

	if err := l.reserveDaily(ctx, platformCode, policy, int64(weight)); err != nil {
		return false, err
	}

	now = l.now()
	cutoff = now.Add(-policy.Window).UnixMilli()
	recorded, err := recordScript.Run(ctx, l.client, []string{key},
		cutoff, policy.WindowCalls, weight, now.UnixMilli(), uuid.NewString(),
		policy.Window.Milliseconds()*2).Int()
	if err != nil {
		return false, fmt.Errorf("failed to record rate limit calls: %w", err)
	}
	if recorded == 0 {
		// Lost the slot while sleeping; release the daily reservation and retry.
		l.client.DecrBy(ctx, dailyKey(platformCode, now), int64(weight))
		return false, nil
	}
	return true, nil
}

// reserveDaily counts the calls against the daily cap before they are made.
func (l *RedisLimiter) reserveDaily(ctx context.Context, platformCode string, policy Policy, weight int64) error {
	if policy.DailyCap <= 0 {
		return nil
	}
	key := dailyKey(platformCode, l.now())
	total, err := l.client.IncrBy(ctx, key, weight).Result()
	if err != nil {
		return fmt.Errorf("failed to advance daily rate counter: %w", err)
	}
	if total == weight {
		l.client.Expire(ctx, key, dailyTTL)
	}
	if total > policy.DailyCap {
		l.client.DecrBy(ctx, key, weight)
		l.logger.Warn("Daily platform call cap exhausted",
			zap.String("platform", platformCode),
			zap.Int64("cap", policy.DailyCap))
		return models.ErrRateExceededDaily
	}
	return nil
}

// Usage reports the current window usage ratio of a platform.
func (l *RedisLimiter) Usage(ctx context.Context, platformCode string) (float64, error) {
	policy, ok := l.policies[platformCode]
	if !ok {
		return 0, nil
	}
	cutoff := l.now().Add(-policy.Window).UnixMilli()
	res, err := countScript.Run(ctx, l.client, []string{windowKey(platformCode)}, cutoff).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	return math.Min(1.0, float64(res[0])/float64(policy.WindowCalls)), nil
}
