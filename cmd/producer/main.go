// Command producer fetches current conditions from Open-Meteo on an interval and
// publishes each reading to the observation queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/client"
	"github.com/kjstillabower/weather-insights-service/internal/config"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/queue"
	"github.com/kjstillabower/weather-insights-service/internal/scheduler"
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
	logger = logger.With(zap.String("component", "producer"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meteo, err := client.NewOpenMeteoClient(cfg.ProducerURL, client.Options{
		Timeout:          cfg.ProducerTimeout,
		RetryAttempts:    cfg.RetryAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		RetryMaxDelay:    cfg.RetryMaxDelay,
		BreakerThreshold: uint32(cfg.BreakerThreshold),
		BreakerTimeout:   cfg.BreakerTimeout,
	})
	if err != nil {
		logger.Fatal("open-meteo client", zap.Error(err))
	}

	conn, err := queue.DialWithRetry(ctx, cfg.QueueURL, cfg.QueueName, logger)
	if err != nil {
		logger.Fatal("queue", zap.Error(err))
	}
	defer conn.Close()

	p := &producer{
		source:    meteo,
		publisher: conn,
		city:      cfg.ProducerCity,
		latitude:  cfg.ProducerLatitude,
		longitude: cfg.ProducerLongitude,
		now:       time.Now,
		logger:    logger,
	}

	jobs := scheduler.New(logger)
	if err := jobs.Every("open-meteo-fetch", cfg.ProducerInterval, cfg.ProducerTimeout*2, true, p.Run); err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	jobs.Start()
	logger.Info("producer started",
		zap.String("city", cfg.ProducerCity),
		zap.Float64("latitude", cfg.ProducerLatitude),
		zap.Float64("longitude", cfg.ProducerLongitude),
		zap.Duration("interval", cfg.ProducerInterval))

	<-ctx.Done()
	jobs.Stop()
	logger.Info("producer stopped")
}
