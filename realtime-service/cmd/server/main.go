package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-library-server/realtime-service/internal/config"
	"game-library-server/realtime-service/internal/handler"
	"game-library-server/realtime-service/internal/messaging"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := newLogger(cfg.LogLevel).With().Str("service", "realtime-service").Logger()
	logger.Info().Str("port", cfg.Port).Bool("authEnabled", cfg.AuthEnabled()).Msg("Starting realtime service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	amqpConn, err := connectRabbitMQ(cfg.BusURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer func() { _ = amqpConn.Close() }()
	logger.Info().Msg("Connected to RabbitMQ")

	manager := handler.NewConnectionManager(cfg.MaxConnections, logger)
	wsHandler := handler.NewWebSocketHandler(manager, cfg.SecretKey, cfg.AuthEnabled(), logger)

	consumer := messaging.NewConsumer(amqpConn, manager, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Event consumer stopped with error")
			stop()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("WebSocket server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("WebSocket server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Realtime service stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// connectRabbitMQ dials the broker with retries; it may still be starting
// when this service comes up.
func connectRabbitMQ(url string, logger zerolog.Logger) (*amqp.Connection, error) {
	const maxRetries = 10
	retryDelay := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("RabbitMQ not ready, retrying")
		time.Sleep(retryDelay)
	}
	return nil, lastErr
}
