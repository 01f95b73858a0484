package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"game-library-server/shared/constants"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/messaging"
	"game-library-server/shared/models"

	"go.uber.org/zap"
)

// AchievementSyncer executes sync_achievements jobs: for every played game
// in a library it pulls the achievement schema and the user's unlocks and
// persists both. Runs on the low queue after a completed library sync.
type AchievementSyncer struct {
	adapters     map[string]interfaces.PlatformAdapter
	libraries    interfaces.LibraryRepository
	platforms    interfaces.PlatformRepository
	games        interfaces.GameRepository
	userGames    interfaces.UserGameRepository
	achievements interfaces.AchievementRepository
	limiter      interfaces.RateLimiter
	events       interfaces.EventPublisher
	db           interfaces.DBTX
	logger       *zap.Logger

	batchSize int
}

// AchievementSyncerDeps bundles the collaborators of the achievement syncer.
type AchievementSyncerDeps struct {
	Adapters     map[string]interfaces.PlatformAdapter
	Libraries    interfaces.LibraryRepository
	Platforms    interfaces.PlatformRepository
	Games        interfaces.GameRepository
	UserGames    interfaces.UserGameRepository
	Achievements interfaces.AchievementRepository
	Limiter      interfaces.RateLimiter
	Events       interfaces.EventPublisher
	DB           interfaces.DBTX
	Logger       *zap.Logger
}

// NewAchievementSyncer creates an AchievementSyncer.
func NewAchievementSyncer(deps AchievementSyncerDeps, batchSize int) *AchievementSyncer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AchievementSyncer{
		adapters:     deps.Adapters,
		libraries:    deps.Libraries,
		platforms:    deps.Platforms,
		games:        deps.Games,
		userGames:    deps.UserGames,
		achievements: deps.Achievements,
		limiter:      deps.Limiter,
		events:       deps.Events,
		db:           deps.DB,
		logger:       deps.Logger.Named("AchievementSyncer"),
		batchSize:    batchSize,
	}
}

// RunAchievementJob executes one sync_achievements job.
func (s *AchievementSyncer) RunAchievementJob(ctx context.Context, job *models.Job) error {
	var args models.AchievementJobArgs
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return models.NewSyncError(models.SyncErrPermanent, fmt.Errorf("invalid achievement job args: %w", err))
	}

	lib, err := s.libraries.GetByID(ctx, args.LibraryID)
	if err != nil {
		return models.NewSyncError(models.SyncErrNotFound, err)
	}
	adapter, ok := s.adapters[lib.PlatformCode]
	if !ok {
		return models.NewSyncError(models.SyncErrPermanent,
			fmt.Errorf("no adapter registered for platform %q", lib.PlatformCode))
	}
	provider, ok := adapter.(interfaces.AchievementProvider)
	if !ok {
		// Platform has no achievement API; nothing to do.
		return nil
	}
	platform, err := s.platforms.GetByCode(ctx, lib.PlatformCode)
	if err != nil {
		return models.NewSyncError(models.SyncErrPermanent, err)
	}

	logger := s.logger.With(zap.String("libraryID", lib.ID.String()))

	if _, err := s.limiter.Acquire(ctx, lib.PlatformCode, 1); err != nil {
		return err
	}
	total, err := adapter.CountGames(ctx, lib)
	if err != nil {
		return err
	}

	synced, unlocked := 0, 0
	for offset := 0; offset < total; offset += s.batchSize {
		if _, err := s.limiter.Acquire(ctx, lib.PlatformCode, 1); err != nil {
			return err
		}
		batch, err := adapter.FetchBatch(ctx, lib, offset, s.batchSize)
		if err != nil {
			return err
		}
		for _, raw := range batch {
			ng, err := adapter.Transform(raw)
			if err != nil || ng.PlaytimeMinutes == 0 {
				// Only played games can have unlocks worth fetching.
				continue
			}
			n, err := s.syncGame(ctx, lib, platform, provider, ng, logger)
			if err != nil {
				se := models.ClassifySyncError(err)
				if se.Kind == models.SyncErrRateLimited || errors.Is(err, models.ErrRateExceededDaily) {
					return err
				}
				logger.Warn("Failed to sync achievements for game", zap.Error(err),
					zap.String("platformGameID", ng.PlatformGameID))
				continue
			}
			synced++
			unlocked += n
		}
	}

	logger.Info("Achievement sync finished",
		zap.Int("gamesSynced", synced), zap.Int("newUnlocks", unlocked))
	return nil
}

// syncGame imports the schema and unlocks of one game, returning the number
// of newly recorded unlocks.
func (s *AchievementSyncer) syncGame(ctx context.Context, lib *models.UserLibrary, platform *models.Platform, provider interfaces.AchievementProvider, ng *models.NormalizedGame, logger *zap.Logger) (int, error) {
	game, err := s.findGame(ctx, ng)
	if err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			// The library sync has not imported this game yet.
			return 0, nil
		}
		return 0, err
	}
	userGame, err := s.userGames.GetByLibraryAndGame(ctx, s.db, lib.ID, game.ID)
	if err != nil {
		if errors.Is(err, models.ErrGameNotFound) {
			return 0, nil
		}
		return 0, err
	}

	if _, err := s.limiter.Acquire(ctx, lib.PlatformCode, 1); err != nil {
		return 0, err
	}
	schema, err := provider.GetAchievementSchema(ctx, ng.PlatformGameID)
	if err != nil {
		return 0, err
	}
	if len(schema) == 0 {
		return 0, nil
	}

	defs := make([]models.Achievement, 0, len(schema))
	for _, pa := range schema {
		defs = append(defs, models.Achievement{
			GameID:                game.ID,
			PlatformID:            platform.ID,
			PlatformAchievementID: pa.PlatformAchievementID,
			Title:                 pa.Title,
			Description:           pa.Description,
			IconURL:               pa.IconURL,
			RarityPercent:         pa.RarityPercent,
			Hidden:                pa.Hidden,
		})
	}
	if err := s.achievements.UpsertDefinitions(ctx, s.db, defs); err != nil {
		return 0, err
	}

	byPlatformID := make(map[string]models.Achievement)
	stored, err := s.achievements.ListByGame(ctx, s.db, game.ID)
	if err != nil {
		return 0, err
	}
	for _, a := range stored {
		byPlatformID[a.PlatformAchievementID] = a
	}

	if _, err := s.limiter.Acquire(ctx, lib.PlatformCode, 1); err != nil {
		return 0, err
	}
	unlocks, err := provider.GetPlayerAchievements(ctx, lib, ng.PlatformGameID)
	if err != nil {
		se := models.ClassifySyncError(err)
		// Private profiles and games without stats are skipped, not fatal.
		if se.Kind == models.SyncErrPermanent || se.Kind == models.SyncErrNotFound {
			return 0, nil
		}
		return 0, err
	}

	newUnlocks := 0
	for _, u := range unlocks {
		def, ok := byPlatformID[u.PlatformAchievementID]
		if !ok {
			continue
		}
		inserted, err := s.achievements.UpsertUnlocks(ctx, s.db, []models.UserAchievement{{
			UserGameID:      userGame.ID,
			AchievementID:   def.ID,
			UnlockedAt:      u.UnlockedAt,
			ProgressPercent: 100,
		}})
		if err != nil {
			return newUnlocks, err
		}
		if inserted == 0 {
			continue
		}
		newUnlocks++
		payload := messaging.AchievementUnlockedPayload{
			LibraryID:       lib.ID,
			GameID:          game.ID,
			GameTitle:       game.Title,
			AchievementName: def.Title,
			UnlockedAt:      u.UnlockedAt,
		}
		if err := s.events.PublishEvent(ctx, messaging.RoutingKeyAchievement, constants.WSEventAchievementUnlocked, payload); err != nil {
			logger.Warn("Failed to publish achievement_unlocked event", zap.Error(err))
		}
	}
	return newUnlocks, nil
}

func (s *AchievementSyncer) findGame(ctx context.Context, ng *models.NormalizedGame) (*models.Game, error) {
	if ng.SteamAppID != nil {
		return s.games.FindBySteamAppID(ctx, s.db, *ng.SteamAppID)
	}
	return s.games.FindByExternalID(ctx, s.db, ng.PlatformCode, ng.PlatformGameID)
}
