package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/profilegate/screener/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := bootstrap.ValidateServiceConfig(&cfg); err != nil {
		logger.Error("invalid service configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting screener",
		"services", bootstrap.EnabledServiceNames(&cfg),
		"dev", cfg.IsDev,
	)

	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database", "error", closeErr)
		}
	}()

	ctx := context.Background()

	if cfg.Postgres.RunMigrationsOnStart {
		if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := bootstrap.ConnectRedis(cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.Error("failed to close redis client", "error", closeErr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to initialise services", "error", err)
		os.Exit(1)
	}

	if err := bootstrap.Run(ctx, bootstrap.RunOptions{
		Config:   &cfg,
		Services: services,
		DB:       db,
		Logger:   logger,
	}); err != nil {
		logger.Error("service failure", "error", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}
