package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/export"
	"github.com/kjstillabower/weather-insights-service/internal/insights"
	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/store"
)

// WeatherService stores observations and keeps the insights summary current.
// Every recompute is a full overwrite from the stored logs, so concurrent
// recomputes from ingestion and the scheduler need no coordination.
type WeatherService struct {
	logs     store.WeatherLogStore
	insights store.InsightsStore
	city     string
	logger   *zap.Logger
}

// NewWeatherService creates a WeatherService. city labels every summary it writes.
func NewWeatherService(logs store.WeatherLogStore, insightsStore store.InsightsStore, city string, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{
		logs:     logs,
		insights: insightsStore,
		city:     city,
		logger:   logger,
	}
}

// CreateLog stores an observation and recomputes insights before returning.
// A supplied ID is kept so a retried delivery stores the observation once; the
// insights are still recomputed for the retry.
func (s *WeatherService) CreateLog(ctx context.Context, log models.WeatherLog) (models.WeatherLog, error) {
	log.ID = strings.TrimSpace(log.ID)
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	stored, err := s.logs.InsertLog(ctx, log)
	if err != nil {
		return models.WeatherLog{}, fmt.Errorf("store weather log: %w", err)
	}
	observability.ObservationsIngestedTotal.Inc()

	if _, err := s.Recompute(ctx, observability.TriggerIngest); err != nil {
		return stored, err
	}
	return stored, nil
}

// ListLogs returns all observations, newest first.
func (s *WeatherService) ListLogs(ctx context.Context) ([]models.WeatherLog, error) {
	logs, err := s.logs.ListLogs(ctx, store.Descending)
	if err != nil {
		return nil, fmt.Errorf("list weather logs: %w", err)
	}
	return logs, nil
}

// Recompute rebuilds the insights summary from every stored observation and
// overwrites the stored summary. trigger labels metrics and logs.
func (s *WeatherService) Recompute(ctx context.Context, trigger string) (models.InsightsSummary, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, s.logger)

	logs, err := s.logs.ListLogs(ctx, store.Ascending)
	if err != nil {
		return models.InsightsSummary{}, fmt.Errorf("recompute insights: %w", err)
	}

	summary := models.InsightsSummary{City: s.city, TotalRecords: len(logs)}
	if len(logs) == 0 {
		logger.Warn("no observations to compute insights", zap.String("trigger", trigger))
		summary.Data = models.NoDataPayload()
	} else {
		raw, err := json.Marshal(insights.Compute(logs))
		if err != nil {
			return models.InsightsSummary{}, fmt.Errorf("encode insights: %w", err)
		}
		summary.Data = raw
	}

	saved, err := s.insights.ReplaceInsights(ctx, summary)
	if err != nil {
		return models.InsightsSummary{}, fmt.Errorf("save insights: %w", err)
	}

	observability.InsightsRecomputationsTotal.WithLabelValues(trigger).Inc()
	observability.InsightsRecomputeDuration.Observe(time.Since(start).Seconds())
	logger.Info("insights recomputed",
		zap.String("trigger", trigger),
		zap.Int("total_records", saved.TotalRecords),
		zap.Duration("duration", time.Since(start)))
	return saved, nil
}

// GetInsights returns the stored summary. A missing summary is computed; a stored
// summary without a city label gets only the label patched.
func (s *WeatherService) GetInsights(ctx context.Context) (models.InsightsSummary, error) {
	existing, found, err := s.insights.GetInsights(ctx)
	if err != nil {
		return models.InsightsSummary{}, fmt.Errorf("get insights: %w", err)
	}
	if !found {
		return s.Recompute(ctx, observability.TriggerRead)
	}
	if existing.City != "" {
		return existing, nil
	}

	patched, err := s.insights.SetInsightsCity(ctx, s.city)
	if err != nil {
		return models.InsightsSummary{}, fmt.Errorf("patch insights city: %w", err)
	}
	observability.LoggerFromContext(ctx, s.logger).Info("patched insights city", zap.String("city", s.city))
	return patched, nil
}

// ExportCSV renders all observations, newest first, as CSV.
func (s *WeatherService) ExportCSV(ctx context.Context) ([]byte, error) {
	logs, err := s.ListLogs(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, logs); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX renders all observations, newest first, as an XLSX workbook.
func (s *WeatherService) ExportXLSX(ctx context.Context) ([]byte, error) {
	logs, err := s.ListLogs(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, logs); err != nil {
		return nil, fmt.Errorf("export xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
