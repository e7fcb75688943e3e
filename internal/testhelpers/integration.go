//go:build integration
// +build integration

// Package testhelpers builds real-infrastructure fixtures for integration tests.
// Each helper skips the test when its backing service is not configured.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weather-insights-service/internal/auth"
	"github.com/kjstillabower/weather-insights-service/internal/service"
	"github.com/kjstillabower/weather-insights-service/internal/store"
)

// PostgresDSN returns TEST_POSTGRES_DSN or skips the test.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping integration test")
	}
	return dsn
}

// AMQPURL returns AMQP_URL or skips the test.
func AMQPURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("AMQP_URL not set, skipping integration test")
	}
	return url
}

// PostgresStore opens a migrated store on an emptied schema. The store is closed
// when the test ends.
func PostgresStore(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := store.OpenPostgres(ctx, PostgresDSN(t))
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })

	if err := pg.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := pg.DB().ExecContext(ctx, `TRUNCATE weather_logs, weather_insights, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pg
}

// Services wires the weather, user and auth services onto st.
type Services struct {
	Weather *service.WeatherService
	Users   *service.UserService
	Auth    *service.AuthService
}

// SetupServices builds services over st with a test logger and a cheap bcrypt cost.
func SetupServices(t *testing.T, st store.Store) Services {
	t.Helper()
	logger := zaptest.NewLogger(t)
	users := service.NewUserService(st, auth.NewHasher(bcrypt.MinCost), logger)
	return Services{
		Weather: service.NewWeatherService(st, st, "Alvorada - TO", logger),
		Users:   users,
		Auth:    service.NewAuthService(users, auth.NewTokens("integration-secret-123", time.Hour), logger),
	}
}
