package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-library-server/api-service/internal/config"
	"game-library-server/api-service/internal/handler"
	"game-library-server/api-service/internal/service"
	"game-library-server/migrations"
	"game-library-server/pkg/migration"
	"game-library-server/shared/database"
	"game-library-server/shared/interfaces"
	"game-library-server/shared/logger"
	"game-library-server/shared/messaging"
	"game-library-server/shared/middleware"
	"game-library-server/shared/queue"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
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
	log = log.Named("api-service")
	zap.ReplaceGlobals(log)
	log.Info("Starting API service", zap.String("port", cfg.Port), zap.Bool("authEnabled", cfg.AuthEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connectPostgres(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, pool, log)
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply database migrations", zap.Error(err))
	}

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

	// The API publishes game_updated on user edits; the bus is optional so
	// a broker outage does not take the read surface down with it.
	var events interfaces.EventPublisher
	amqpConn, err := amqp091.Dial(cfg.BusURL)
	if err != nil {
		log.Warn("RabbitMQ unavailable, realtime events disabled", zap.Error(err))
	} else {
		defer func() { _ = amqpConn.Close() }()
		publisher, err := messaging.NewRabbitMQEventPublisher(amqpConn)
		if err != nil {
			log.Warn("Failed to create event publisher, realtime events disabled", zap.Error(err))
		} else {
			defer func() { _ = publisher.Close() }()
			events = publisher
		}
	}

	// Repositories
	platformRepo := database.NewPgPlatformRepository(pool, log)
	libraryRepo := database.NewPgLibraryRepository(pool, log)
	gameRepo := database.NewPgGameRepository(pool, log)
	userGameRepo := database.NewPgUserGameRepository(pool, log)
	opRepo := database.NewPgSyncOperationRepository(pool, log)
	collectionRepo := database.NewPgCollectionRepository(pool, log)
	syncStateRepo := database.NewRedisSyncStateRepository(redisClient, log)
	progressRepo := database.NewRedisProgressRepository(redisClient, log)
	jobQueue := queue.NewRedisQueue(redisClient, log)

	// Services
	platformSvc := service.NewPlatformService(platformRepo)
	librarySvc := service.NewLibraryService(libraryRepo, platformRepo, log)
	gameSvc := service.NewGameService(pool, gameRepo, userGameRepo, libraryRepo, events, log)
	collectionSvc := service.NewCollectionService(collectionRepo, libraryRepo, log)
	syncSvc := service.NewSyncService(libraryRepo, opRepo, syncStateRepo, progressRepo, jobQueue, log)

	var authSvc service.AuthService
	if cfg.AuthEnabled() {
		authSvc, err = service.NewAuthService(cfg.AdminEmail, cfg.AdminPassword, cfg.SecretKey, cfg.TokenTTL, log)
		if err != nil {
			log.Fatal("Failed to create auth service", zap.Error(err))
		}
	}

	router := buildRouter(cfg, log)
	api := handler.NewAPIHandler(platformSvc, librarySvc, gameSvc, collectionSvc, syncSvc, authSvc, log)
	api.RegisterRoutes(router, cfg.SecretKey, cfg.AuthEnabled())

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("API service stopped")
}

func buildRouter(cfg *config.Config, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.GinZapLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	router.Use(cors.New(corsConfig))

	prom := ginprometheus.NewPrometheus("api")
	prom.Use(router)

	return router
}

// connectPostgres dials the pool with retries; the database container may
// still be starting when the API comes up.
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
