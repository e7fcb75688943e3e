package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

// TestForwarder_Forward verifies the request shape and status handling.
func TestForwarder_Forward(t *testing.T) {
	var gotPath, gotCorr, gotType string
	var gotBody models.WeatherLog
	status := http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCorr = r.Header.Get("X-Correlation-ID")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL"}}`))
	}))
	defer srv.Close()

	f := newForwarder(srv.URL, time.Second)
	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	log := models.WeatherLog{Source: "open-meteo", City: "Alvorada - TO", TemperatureC: models.Float(29.4)}

	if err := f.Forward(ctx, log); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if gotPath != "/api/weather/logs" {
		t.Errorf("path = %q", gotPath)
	}
	if gotCorr != "corr-1" {
		t.Errorf("X-Correlation-ID = %q, want corr-1", gotCorr)
	}
	if !strings.HasPrefix(gotType, "application/json") {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody.City != "Alvorada - TO" || gotBody.TemperatureC == nil || *gotBody.TemperatureC != 29.4 {
		t.Errorf("body = %+v", gotBody)
	}

	status = http.StatusInternalServerError
	err := f.Forward(context.Background(), log)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Forward() error = %v, want status 500 failure", err)
	}
}

// TestForwarder_Unreachable verifies that transport errors are returned.
func TestForwarder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := newForwarder(url, 200*time.Millisecond).Forward(context.Background(), models.WeatherLog{}); err == nil {
		t.Error("Forward() error = nil for closed server")
	}
}
