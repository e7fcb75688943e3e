package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/client"
	"github.com/kjstillabower/weather-insights-service/internal/models"
)

// readingSource fetches current conditions at a coordinate.
type readingSource interface {
	Current(ctx context.Context, latitude, longitude float64) (client.Reading, error)
}

// publisher sends an observation to the queue.
type publisher interface {
	Publish(ctx context.Context, log models.WeatherLog) error
}

// producer turns one Open-Meteo reading into one queued observation per run.
type producer struct {
	source    readingSource
	publisher publisher
	city      string
	latitude  float64
	longitude float64
	now       func() time.Time
	logger    *zap.Logger
}

// buildObservation maps a reading onto the observation wire shape. The ID is
// assigned here so a redelivered message is stored once.
func (p *producer) buildObservation(r client.Reading) models.WeatherLog {
	log := models.WeatherLog{
		ID:                       uuid.NewString(),
		Source:                   "open-meteo",
		City:                     p.city,
		Latitude:                 p.latitude,
		Longitude:                p.longitude,
		Timestamp:                p.now().UTC(),
		TemperatureC:             r.TemperatureC,
		Humidity:                 r.Humidity,
		WindSpeedMS:              r.WindSpeedMS,
		WeatherCode:              r.WeatherCode,
		PrecipitationProbability: r.PrecipitationProbability,
	}
	if r.WeatherCode != nil {
		log.WeatherDescription = models.String(client.DescribeWeatherCode(*r.WeatherCode))
	}
	return log
}

// Run fetches and publishes a single observation.
func (p *producer) Run(ctx context.Context) error {
	reading, err := p.source.Current(ctx, p.latitude, p.longitude)
	if err != nil {
		return fmt.Errorf("fetch open-meteo (%s): %w", client.CategorizeError(err), err)
	}
	log := p.buildObservation(reading)
	if err := p.publisher.Publish(ctx, log); err != nil {
		return err
	}
	p.logger.Info("observation published", zap.String("city", log.City), zap.Time("timestamp", log.Timestamp))
	return nil
}
