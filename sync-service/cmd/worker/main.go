package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-library-server/shared/database"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/logger"
	"game-library-server/shared/matching"
	"game-library-server/shared/messaging"
	"game-library-server/shared/queue"
	"game-library-server/shared/ratelimit"
	"game-library-server/sync-service/internal/config"
	"game-library-server/sync-service/internal/platform/steam"
	"game-library-server/sync-service/internal/scheduler"
	"game-library-server/sync-service/internal/service"
	"game-library-server/sync-service/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("sync-service")
	log.Info("Starting sync service", zap.Int("workers", cfg.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.QueueURL)
	if err != nil {
		log.Fatal("Invalid QUEUE_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Connected to Redis")

	amqpConn, err := connectRabbitMQ(cfg.BusURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() { _ = amqpConn.Close() }()
	log.Info("Connected to RabbitMQ")

	publisher, err := messaging.NewRabbitMQEventPublisher(amqpConn)
	if err != nil {
		log.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer func() { _ = publisher.Close() }()

	// Repositories
	libraryRepo := database.NewPgLibraryRepository(pool, log)
	gameRepo := database.NewPgGameRepository(pool, log)
	matchRepo := database.NewPgGameMatchRepository(pool, log)
	userGameRepo := database.NewPgUserGameRepository(pool, log)
	opRepo := database.NewPgSyncOperationRepository(pool, log)
	platformRepo := database.NewPgPlatformRepository(pool, log)
	achievementRepo := database.NewPgAchievementRepository(pool, log)
	syncStateRepo := database.NewRedisSyncStateRepository(redisClient, log)
	progressRepo := database.NewRedisProgressRepository(redisClient, log)

	// Shared infrastructure
	jobQueue := queue.NewRedisQueue(redisClient, log)
	limiter := ratelimit.NewRedisLimiter(redisClient, map[string]ratelimit.Policy{
		steam.PlatformCode: ratelimit.SteamPolicy,
	}, log)

	// Steam adapter
	steamClient := steam.NewClient(cfg.SteamBaseURL, cfg.SteamAPIKey, cfg.SteamTimeout, log)
	steamAdapter := steam.NewAdapter(steamClient, cfg.CacheTTL, log)
	adapters := map[string]interfaces.PlatformAdapter{
		steamAdapter.PlatformCode(): steamAdapter,
	}

	// Services
	resolver := matching.NewResolver(gameRepo, matchRepo, log)
	importer := service.NewCatalogImporter(pool, resolver, userGameRepo, opRepo, log)
	progress := service.NewProgressPublisher(progressRepo, publisher, log)
	warner := service.NewRateLimitWarner(publisher, log)

	deps := worker.Deps{
		Adapters:   adapters,
		Libraries:  libraryRepo,
		Operations: opRepo,
		SyncState:  syncStateRepo,
		Limiter:    limiter,
		Importer:   importer,
		Progress:   progress,
		Warner:     warner,
		Events:     publisher,
		Queue:      jobQueue,
		Logger:     log,
	}
	opts := worker.Options{
		LockTTL:     cfg.LockTTL,
		BatchSize:   cfg.BatchSize,
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
	}
	achievements := worker.NewAchievementSyncer(worker.AchievementSyncerDeps{
		Adapters:     adapters,
		Libraries:    libraryRepo,
		Platforms:    platformRepo,
		Games:        gameRepo,
		UserGames:    userGameRepo,
		Achievements: achievementRepo,
		Limiter:      limiter,
		Events:       publisher,
		DB:           pool,
		Logger:       log,
	}, cfg.BatchSize)

	runner := worker.NewRunner(cfg.Workers, jobQueue, deps, opts, achievements, log)
	sched := scheduler.New(libraryRepo, syncStateRepo, jobQueue, cfg.ScheduleEvery, log)

	metricsServer := startMetricsServer(cfg.MetricsPort, log)
	go sched.Run(ctx)

	// Blocks until shutdown; in-flight jobs checkpoint and exit.
	runner.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to stop metrics server", zap.Error(err))
	}
	log.Info("Sync service stopped")
}

// connectPostgres dials the pool with retries; the database container may
// still be starting when the worker comes up.
func connectPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	const maxRetries = 30
	retryDelay := 3 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(attemptCtx, poolConfig)
		if err == nil {
			err = pool.Ping(attemptCtx)
			if err == nil {
				cancel()
				log.Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}
		cancel()
		lastErr = err
		log.Warn("PostgreSQL not ready, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxRetries, lastErr)
}

func connectRabbitMQ(url string, log *zap.Logger) (*amqp091.Connection, error) {
	const maxRetries = 10
	retryDelay := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warn("RabbitMQ not ready, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, lastErr)
}

// startMetricsServer serves /metrics and /health on the side port.
func startMetricsServer(port string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(worker.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		log.Info("Metrics server listening", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return server
}
