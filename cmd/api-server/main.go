package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/apiserver"
	"github.com/sitegrid/sitegrid/pkg/auth"
	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/config"
	"github.com/sitegrid/sitegrid/pkg/eventbus"
	"github.com/sitegrid/sitegrid/pkg/logging"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/planner"
	"github.com/sitegrid/sitegrid/pkg/store"
	"github.com/sitegrid/sitegrid/pkg/store/memory"
	"github.com/sitegrid/sitegrid/pkg/store/postgres"
	redisclient "github.com/sitegrid/sitegrid/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	policy, err := capacity.ParsePolicy(cfg.Capacity.Policy)
	if err != nil {
		logger.Fatal("Invalid capacity policy", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret must be set")
	}

	siteStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer siteStore.Close()

	ctx := context.Background()
	if err := bootstrapAdmin(ctx, siteStore, cfg.Auth, logger); err != nil {
		logger.Fatal("Failed to create admin user", zap.Error(err))
	}

	var bus eventbus.Publisher
	redis, err := redisclient.NewClient(ctx, &cfg.Redis)
	switch {
	case errors.Is(err, redisclient.ErrDisabled):
		logger.Info("Redis not configured, live events disabled")
	case err != nil:
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	default:
		defer redis.Close()
		bus = redis.Bus()
	}

	if cfg.Grid.DefaultCapacity < 0 {
		logger.Fatal("grid.default_capacity must be >= 0", zap.Int("default_capacity", cfg.Grid.DefaultCapacity))
	}
	p := planner.New(siteStore, logger, planner.Options{
		Policy:          policy,
		DefaultCapacity: cfg.Grid.DefaultCapacity,
		MaxCells:        cfg.Grid.MaxCells,
		Bus:             bus,
	})
	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	server := apiserver.NewServer(siteStore, p, tokens, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting API server",
			zap.Int("port", cfg.Server.HTTPPort),
			zap.String("store", cfg.Database.Driver),
			zap.String("capacity_policy", string(policy)),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.SiteStore, error) {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	case "postgres", "":
		db, err := postgres.NewStore(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// bootstrapAdmin creates the configured admin account on first start.
func bootstrapAdmin(ctx context.Context, s store.SiteStore, cfg config.AuthConfig, logger *zap.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := s.GetUserByUsername(ctx, cfg.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	err = s.CreateUser(ctx, &model.User{Username: cfg.AdminUsername, PasswordHash: hash, Role: model.RoleAdmin})
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	if err == nil {
		logger.Info("Created admin user", zap.String("username", cfg.AdminUsername))
	}
	return err
}
