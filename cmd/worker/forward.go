package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

const ingestPath = "/api/weather/logs"

// forwarder posts observations to the API ingestion endpoint.
type forwarder struct {
	client *resty.Client
}

func newForwarder(apiURL string, timeout time.Duration) *forwarder {
	return &forwarder{
		client: resty.New().
			SetBaseURL(apiURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Forward sends log to the API. Any status of 400 or above is a failure.
func (f *forwarder) Forward(ctx context.Context, log models.WeatherLog) error {
	req := f.client.R().SetContext(ctx).SetBody(log)
	if id := observability.CorrelationID(ctx); id != "" {
		req.SetHeader("X-Correlation-ID", id)
	}
	resp, err := req.Post(ingestPath)
	if err != nil {
		return fmt.Errorf("post observation: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("api returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
