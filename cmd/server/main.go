package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/f1blog/internal/config"
	"github.com/f1blog/internal/constants"
	"github.com/f1blog/internal/db"
	apphttp "github.com/f1blog/internal/http"
	"github.com/f1blog/internal/logger"
	"github.com/f1blog/internal/service"
	"github.com/f1blog/internal/throttle"
)

func main() {
	// Load .env file if it exists (optional, won't error if missing)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.InitLogger(cfg.Environment)
	if envErr != nil {
		appLogger.Debug("no .env file loaded", "error", envErr)
	}

	appLogger.Info("starting f1blog",
		"environment", cfg.Environment,
		"address", cfg.ServerAddress,
		"protected_paths", cfg.Auth.ProtectedPaths,
	)

	database, err := db.Init(cfg.DatabasePath)
	if err != nil {
		appLogger.Error("failed to initialize database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.SeedFile != "" {
		seed, err := db.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			appLogger.Error("failed to load seed file", "path", cfg.SeedFile, "error", err)
			os.Exit(1)
		}
		if err := database.ApplySeed(context.Background(), seed, service.HashPassword); err != nil {
			appLogger.Error("failed to apply seed", "error", err)
			os.Exit(1)
		}
		appLogger.Info("seed applied", "users", len(seed.Users), "posts", len(seed.Posts))
	}

	limiter, stopLimiter, err := newLimiter(cfg)
	if err != nil {
		appLogger.Error("failed to initialize login throttle", "error", err)
		os.Exit(1)
	}
	defer stopLimiter()

	server, err := apphttp.NewServer(cfg, database, limiter, appLogger)
	if err != nil {
		appLogger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		appLogger.Info("server listening", "address", cfg.ServerAddress)
		if err := server.Run(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("server shutdown error", "error", err)
	}
	appLogger.Info("server stopped")
}

// newLimiter picks the Redis limiter when configured, else the in-memory one
// with its periodic sweep
func newLimiter(cfg *config.Config) (throttle.Limiter, func(), error) {
	policy := throttle.Policy{
		MaxAttempts: cfg.Throttle.MaxAttempts,
		Window:      cfg.Throttle.Window,
		Lockout:     cfg.Throttle.Lockout,
	}

	if cfg.Throttle.RedisURL != "" {
		r, err := throttle.NewRedis(cfg.Throttle.RedisURL, policy)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}

	m := throttle.NewMemory(policy)
	if err := m.StartSweeper(constants.ThrottleSweepSchedule); err != nil {
		return nil, nil, err
	}
	return m, m.Stop, nil
}
