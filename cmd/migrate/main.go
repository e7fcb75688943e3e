// Command migrate applies the postgres schema and backfills the city label of an
// insights record written before the label existed.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/config"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.RequireDatabaseURL(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("schema applied")

	patched, err := pg.BackfillInsightsCity(ctx, cfg.InsightsCity)
	if err != nil {
		logger.Fatal("backfill insights city", zap.Error(err))
	}
	if patched {
		logger.Info("insights city backfilled", zap.String("city", cfg.InsightsCity))
	} else {
		logger.Info("insights city already set or no insights record")
	}
}
