// Command worker consumes observations from the queue and forwards each one to
// the API ingestion endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/config"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/queue"
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
	logger = logger.With(zap.String("component", "worker"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := queue.DialWithRetry(ctx, cfg.QueueURL, cfg.QueueName, logger)
	if err != nil {
		logger.Fatal("queue", zap.Error(err))
	}
	defer conn.Close()

	fwd := newForwarder(cfg.WorkerAPIURL, cfg.WorkerTimeout)
	logger.Info("worker started", zap.String("queue", cfg.QueueName), zap.String("api_url", cfg.WorkerAPIURL))
	if err := conn.Consume(ctx, fwd.Forward); err != nil {
		logger.Error("consume stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}
