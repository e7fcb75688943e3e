package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-insights-service/internal/auth"
	"github.com/kjstillabower/weather-insights-service/internal/cache"
	"github.com/kjstillabower/weather-insights-service/internal/client"
	"github.com/kjstillabower/weather-insights-service/internal/config"
	httphandler "github.com/kjstillabower/weather-insights-service/internal/http"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/scheduler"
	"github.com/kjstillabower/weather-insights-service/internal/service"
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

	if err := cfg.RequireJWTSecret(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var closers []io.Closer

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	closers = append(closers, st)

	var cacheBackend cache.Cache
	var cachePing func() error
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		closers = append(closers, mc)
		cacheBackend = mc
		cachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheBackend = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	pokeClient, err := client.NewPokeAPIClient(cfg.PokeAPIURL, client.Options{
		Timeout:          cfg.PokeAPITimeout,
		RetryAttempts:    cfg.RetryAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		RetryMaxDelay:    cfg.RetryMaxDelay,
		BreakerThreshold: uint32(cfg.BreakerThreshold),
		BreakerTimeout:   cfg.BreakerTimeout,
	})
	if err != nil {
		logger.Fatal("pokeapi client", zap.Error(err))
	}

	weatherService := service.NewWeatherService(st, st, cfg.InsightsCity, logger)
	userService := service.NewUserService(st, auth.NewHasher(cfg.BcryptCost), logger)
	authService := service.NewAuthService(userService, auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry), logger)
	pokemonService := service.NewPokemonService(pokeClient, cache.NewInstrumented(cacheBackend, cfg.CacheBackend), service.PokemonConfig{
		PageSize:        cfg.PokeAPIPageSize,
		TotalCount:      cfg.PokeAPITotalCount,
		CacheTTL:        cfg.PokeAPICacheTTL,
		CoalesceTimeout: cfg.CoalesceTimeout,
	}, logger)

	if cfg.WarmPages > 0 {
		warmer := cache.NewCacheWarmer(pokemonService, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmPages); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
	}

	jobs := scheduler.New(logger)
	if err := jobs.Every("insights-recompute", cfg.RecomputeInterval, time.Minute, false, func(ctx context.Context) error {
		_, err := weatherService.Recompute(ctx, observability.TriggerSchedule)
		return err
	}); err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	jobs.Start()

	handler := httphandler.NewHandler(httphandler.Services{
		Weather: weatherService,
		Users:   userService,
		Auth:    authService,
		Pokemon: pokemonService,
	}, &httphandler.HealthConfig{
		StorePing: st.Ping,
		CachePing: cachePing,
	}, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	jobs.Stop()
	handler.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.CloseAll(closers...); err != nil {
		logger.Error("close resources", zap.Error(err))
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// openStore opens the configured backend, applying the postgres schema on startup.
func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.StoreBackend != "postgres" {
		logger.Info("store backend: memory")
		return store.NewMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	logger.Info("store backend: postgres")
	return pg, nil
}
