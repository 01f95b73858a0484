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

// Compile-time check to ensure redisProgressRepository implements ProgressSnapshotRepository
var _ interfaces.ProgressSnapshotRepository = (*redisProgressRepository)(nil)

type redisProgressRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisProgressRepository creates a new Redis-backed ProgressSnapshotRepository.
func NewRedisProgressRepository(client *redis.Client, logger *zap.Logger) interfaces.ProgressSnapshotRepository {
	return &redisProgressRepository{
		client: client,
		logger: logger.Named("RedisProgressRepo"),
	}
}

func progressKey(libraryID uuid.UUID) string {
	return fmt.Sprintf("sync:progress:%s", libraryID)
}

func (r *redisProgressRepository) Save(ctx context.Context, event *models.ProgressEvent, ttl time.Duration) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := r.client.Set(ctx, progressKey(event.LibraryID), payload, ttl).Err(); err != nil {
		r.logger.Error("Failed to save progress snapshot", zap.Error(err),
			zap.String("libraryID", event.LibraryID.String()))
		return fmt.Errorf("failed to save progress snapshot: %w", err)
	}
	return nil
}

func (r *redisProgressRepository) Load(ctx context.Context, libraryID uuid.UUID) (*models.ProgressEvent, error) {
	payload, err := r.client.Get(ctx, progressKey(libraryID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to load progress snapshot", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("failed to load progress snapshot: %w", err)
	}

	var event models.ProgressEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		r.logger.Error("Corrupted progress snapshot in redis", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return nil, fmt.Errorf("corrupted progress snapshot for library %s: %w", libraryID, err)
	}
	return &event, nil
}

func (r *redisProgressRepository) Delete(ctx context.Context, libraryID uuid.UUID) error {
	if err := r.client.Del(ctx, progressKey(libraryID)).Err(); err != nil {
		r.logger.Error("Failed to delete progress snapshot", zap.Error(err), zap.String("libraryID", libraryID.String()))
		return fmt.Errorf("failed to delete progress snapshot: %w", err)
	}
	return nil
}
