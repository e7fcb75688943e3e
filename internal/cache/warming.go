package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

// PageFetcher is implemented by the service layer to fetch a pokemon listing page.
// Used by CacheWarmer to avoid a circular dependency on the service package.
type PageFetcher interface {
	ListPokemon(ctx context.Context, page int) (models.PokemonPage, error)
}

// CacheWarmer warms the cache by prefetching the first listing pages.
type CacheWarmer struct {
	fetcher PageFetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher PageFetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm fetches pages 1..pages concurrently; the fetcher populates the cache.
// Returns the joined errors of failed pages.
func (w *CacheWarmer) Warm(ctx context.Context, pages int) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("pages", pages))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, pages)
	for page := 1; page <= pages; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			if _, err := w.fetcher.ListPokemon(ctx, page); err != nil {
				errCh <- fmt.Errorf("warm page %d: %w", page, err)
			}
		}(page)
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("pages", pages), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}
