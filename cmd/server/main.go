package main

import (
	"context"
	"log"

	"fishfarm-backend/internal/config"
	"fishfarm-backend/internal/database"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/server"
	"fishfarm-backend/internal/sizing"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.IsProduction()); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	bands, err := sizing.InitialBands(cfg.SizeClassFile)
	if err != nil {
		logger.L().Fatal("size classes", zap.Error(err))
	}

	db, err := database.Init(cfg, bands)
	if err != nil {
		logger.L().Fatal("database", zap.Error(err))
	}

	classifier, err := sizing.Load(context.Background(), db)
	if err != nil {
		logger.L().Fatal("size classes", zap.Error(err))
	}

	retry := database.RetryPolicy{
		Attempts: cfg.StoreRetryAttempts,
		Backoff:  cfg.StoreRetryBackoff,
	}
	app := server.New(cfg, db, retry, sizing.NewHolder(classifier))

	logger.L().Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.L().Fatal("listen", zap.Error(err))
	}
}
