package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisSyncStateRepository implements SyncStateRepository
var _ interfaces.SyncStateRepository = (*redisSyncStateRepository)(nil)

// checkpointTTL bounds how long an abandoned checkpoint survives.
const checkpointTTL = 7 * 24 * time.Hour

// renewLockScript extends the lock TTL only while the caller still owns it.
var renewLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// releaseLockScript deletes the lock only while the caller still owns it.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

type redisSyncStateRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSyncStateRepository creates a new Redis-backed SyncStateRepository.
func NewRedisSyncStateRepository(client *redis.Client, logger *zap.Logger) interfaces.SyncStateRepository {
	return &redisSyncStateRepository{
		client: client,
		logger: logger.Named("RedisSyncStateRepo"),
	}
}

func lockKey(libraryID uuid.UUID) string {
	return fmt.Sprintf("sync:lock:%s", libraryID)
}

func checkpointKey(libraryID uuid.UUID) string {
	return fmt.Sprintf("sync:checkpoint:%s", libraryID)
}

func (r *redisSyncStateRepository) AcquireLock(ctx context.Context, libraryID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKey(libraryID), holder, ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire sync lock", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if ok {
		r.logger.Debug("Sync lock acquired",
			zap.String("libraryID", libraryID.String()),
			zap.String("holder", holder),
			zap.Duration("ttl", ttl))
	}
	return ok, nil
}

func (r *redisSyncStateRepository) RenewLock(ctx context.Context, libraryID uuid.UUID, holder string, ttl time.Duration) error {
	renewed, err := renewLockScript.Run(ctx, r.client, []string{lockKey(libraryID)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		r.logger.Error("Failed to renew sync lock", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return fmt.Errorf("failed to renew sync lock: %w", err)
	}
	if renewed == 0 {
		// Lock expired or was deleted out from under us: stop syncing.
		return models.ErrLockNotHeld
	}
	return nil
}

func (r *redisSyncStateRepository) ReleaseLock(ctx context.Context, libraryID uuid.UUID, holder string) error {
	released, err := releaseLockScript.Run(ctx, r.client, []string{lockKey(libraryID)}, holder).Int()
	if err != nil {
		r.logger.Error("Failed to release sync lock", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	if released == 0 {
		return models.ErrLockNotHeld
	}
	r.logger.Debug("Sync lock released",
		zap.String("libraryID", libraryID.String()), zap.String("holder", holder))
	return nil
}

func (r *redisSyncStateRepository) ForceReleaseLock(ctx context.Context, libraryID uuid.UUID) error {
	if err := r.client.Del(ctx, lockKey(libraryID)).Err(); err != nil {
		r.logger.Error("Failed to force-release sync lock", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return fmt.Errorf("failed to force-release sync lock: %w", err)
	}
	r.logger.Info("Sync lock force-released", zap.String("libraryID", libraryID.String()))
	return nil
}

func (r *redisSyncStateRepository) LockHolder(ctx context.Context, libraryID uuid.UUID) (string, error) {
	holder, err := r.client.Get(ctx, lockKey(libraryID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		r.logger.Error("Failed to read sync lock holder", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return "", fmt.Errorf("failed to read sync lock holder: %w", err)
	}
	return holder, nil
}

func (r *redisSyncStateRepository) IsSyncing(ctx context.Context, libraryID uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, lockKey(libraryID)).Result()
	if err != nil {
		r.logger.Error("Failed to check sync lock", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return false, fmt.Errorf("failed to check sync lock: %w", err)
	}
	return n > 0, nil
}

func (r *redisSyncStateRepository) SaveCheckpoint(ctx context.Context, cp *models.SyncCheckpoint) error {
	cp.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := r.client.Set(ctx, checkpointKey(cp.LibraryID), payload, checkpointTTL).Err(); err != nil {
		r.logger.Error("Failed to save checkpoint", zap.Error(err), zap.String("libraryID", cp.LibraryID.String()))
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *redisSyncStateRepository) LoadCheckpoint(ctx context.Context, libraryID uuid.UUID) (*models.SyncCheckpoint, error) {
	payload, err := r.client.Get(ctx, checkpointKey(libraryID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrCheckpointNotFound
		}
		r.logger.Error("Failed to load checkpoint", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var cp models.SyncCheckpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		r.logger.Error("Corrupted checkpoint data in redis", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("corrupted checkpoint data for library %s: %w", libraryID, err)
	}
	return &cp, nil
}

func (r *redisSyncStateRepository) DeleteCheckpoint(ctx context.Context, libraryID uuid.UUID) error {
	if err := r.client.Del(ctx, checkpointKey(libraryID)).Err(); err != nil {
		r.logger.Error("Failed to delete checkpoint", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
