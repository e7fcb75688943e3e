package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/cache"
	"github.com/kjstillabower/weather-insights-service/internal/client"
	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/validation"
)

// PokemonConfig holds paging and caching settings for the proxy.
type PokemonConfig struct {
	PageSize        int
	TotalCount      int
	CacheTTL        time.Duration
	CoalesceTimeout time.Duration
}

// PokemonService reshapes PokeAPI data. Results are cached and concurrent fetches
// of the same resource are coalesced.
type PokemonService struct {
	client    client.PokemonClient
	cache     cache.Cache
	cfg       PokemonConfig
	coalescer *requestCoalescer
	logger    *zap.Logger
}

// NewPokemonService creates a PokemonService. Zero config values fall back to
// 20 per page, 1302 total and a 10 minute TTL.
func NewPokemonService(c client.PokemonClient, cc cache.Cache, cfg PokemonConfig, logger *zap.Logger) *PokemonService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.TotalCount <= 0 {
		cfg.TotalCount = 1302
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.CoalesceTimeout <= 0 {
		cfg.CoalesceTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PokemonService{
		client:    c,
		cache:     cc,
		cfg:       cfg,
		coalescer: newRequestCoalescer(cfg.CoalesceTimeout),
		logger:    logger,
	}
}

// TotalPages is ceil(TotalCount / PageSize).
func (s *PokemonService) TotalPages() int {
	return (s.cfg.TotalCount + s.cfg.PageSize - 1) / s.cfg.PageSize
}

// ListPokemon returns a 1-based listing page. Pages below 1 are treated as 1.
func (s *PokemonService) ListPokemon(ctx context.Context, page int) (models.PokemonPage, error) {
	if page < 1 {
		page = 1
	}
	var results []models.PokemonSummary
	key := "pokemon:list:" + strconv.Itoa(page)
	err := s.cached(ctx, key, &results, func(ctx context.Context) (any, error) {
		return s.client.ListPokemon(ctx, s.cfg.PageSize, (page-1)*s.cfg.PageSize)
	})
	if err != nil {
		return models.PokemonPage{}, s.mapErr(ctx, err)
	}
	if results == nil {
		results = []models.PokemonSummary{}
	}
	return models.PokemonPage{Page: page, TotalPages: s.TotalPages(), Results: results}, nil
}

// GetPokemon returns the detail of a pokemon by id or name.
func (s *PokemonService) GetPokemon(ctx context.Context, idOrName string) (models.Pokemon, error) {
	q, err := validation.PokemonQuery(idOrName)
	if err != nil {
		return models.Pokemon{}, ErrPokemonNotFound
	}
	return s.detail(ctx, q)
}

// Search looks a pokemon up by id or name. Every failure, including upstream
// errors, is reported as ErrPokemonNotFound.
func (s *PokemonService) Search(ctx context.Context, query string) (models.Pokemon, error) {
	q, err := validation.PokemonQuery(query)
	if err != nil {
		return models.Pokemon{}, ErrPokemonNotFound
	}
	p, err := s.detail(ctx, q)
	if err != nil {
		if !errors.Is(err, ErrPokemonNotFound) {
			observability.LoggerFromContext(ctx, s.logger).Debug("search failed upstream", zap.String("query", q), zap.Error(err))
		}
		return models.Pokemon{}, ErrPokemonNotFound
	}
	return p, nil
}

func (s *PokemonService) detail(ctx context.Context, q string) (models.Pokemon, error) {
	var p models.Pokemon
	err := s.cached(ctx, "pokemon:detail:"+q, &p, func(ctx context.Context) (any, error) {
		return s.client.GetPokemon(ctx, q)
	})
	if err != nil {
		return models.Pokemon{}, s.mapErr(ctx, err)
	}
	return p, nil
}

// cached decodes the value under key into dst, fetching and storing it on a miss.
// Cache failures are logged and bypassed.
func (s *PokemonService) cached(ctx context.Context, key string, dst any, fetch func(context.Context) (any, error)) error {
	logger := observability.LoggerFromContext(ctx, s.logger)

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			logger.Debug("cache hit", zap.String("key", key))
			return nil
		}
		logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	raw, shared, err := s.coalescer.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if setErr := s.cache.Set(ctx, key, b, s.cfg.CacheTTL); setErr != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	logger.Debug("cache miss, fetched upstream", zap.String("key", key), zap.Bool("coalesced", shared))
	return json.Unmarshal(raw, dst)
}

func (s *PokemonService) mapErr(ctx context.Context, err error) error {
	if errors.Is(err, client.ErrNotFound) {
		return ErrPokemonNotFound
	}
	observability.LoggerFromContext(ctx, s.logger).Warn("pokeapi call failed",
		zap.String("error_category", string(client.CategorizeError(err))),
		zap.Error(err))
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
