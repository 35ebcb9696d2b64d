package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinelist/database"
	"cinelist/internal/config"
	"cinelist/internal/logging"
	httpapi "cinelist/internal/microservices/http-api"
	"cinelist/internal/microservices/http-api/repository"
	"cinelist/internal/microservices/realtime"
)

const (
	shutdownTimeout      = 10 * time.Second
	tokenCleanupInterval = time.Hour
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(logger)
	publisher := realtime.NewPGPublisher(db, cfg.RealtimeChannel)
	listener := realtime.NewListener(cfg.DatabaseURL, cfg.RealtimeChannel, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.Error("realtime_listener_stopped", "error", err)
		}
	}()

	go cleanupRefreshTokens(ctx, repository.NewRefreshTokenRepository(db), logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpapi.NewRouter(cfg, db, publisher, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_api_server", "addr", server.Addr, "env", cfg.GoEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("server_error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// hijacked websocket conns are not tracked by Shutdown
	hub.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "error", err)
	}
	logger.Info("server_stopped_gracefully")
}

func cleanupRefreshTokens(ctx context.Context, repo repository.RefreshTokenRepository, logger *slog.Logger) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				logger.Warn("refresh_token_cleanup_failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("refresh_tokens_pruned", "count", n)
			}
		}
	}
}
