//go:build integration
// +build integration

package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/queue"
	"github.com/kjstillabower/weather-insights-service/internal/testhelpers"
)

// TestPublishConsume_Integration verifies a round trip through a real broker.
func TestPublishConsume_Integration(t *testing.T) {
	url := testhelpers.AMQPURL(t)
	name := fmt.Sprintf("weather_queue_test_%d", time.Now().UnixNano())

	conn, err := queue.Dial(url, name, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	want := models.WeatherLog{Source: "open-meteo", City: "Alvorada - TO", TemperatureC: models.Float(30)}
	if err := conn.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := make(chan models.WeatherLog, 1)
	go func() {
		_ = conn.Consume(ctx, func(_ context.Context, log models.WeatherLog) error {
			got <- log
			cancel()
			return nil
		})
	}()

	select {
	case log := <-got:
		if log.City != want.City || log.TemperatureC == nil || *log.TemperatureC != 30 {
			t.Errorf("consumed %+v, want %+v", log, want)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no message consumed")
	}
}
