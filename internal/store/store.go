// Package store persists weather logs, the insights singleton and users.
package store

import (
	"context"
	"errors"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

var (
	// ErrNotFound is returned when a lookup by identifier matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// Order selects the timestamp ordering of ListLogs.
type Order int

const (
	Ascending Order = iota
	Descending
)

// WeatherLogStore appends and lists weather observations. Logs are never updated.
// InsertLog is idempotent on ID: inserting an ID that already exists returns the
// stored log unchanged.
type WeatherLogStore interface {
	InsertLog(ctx context.Context, log models.WeatherLog) (models.WeatherLog, error)
	ListLogs(ctx context.Context, order Order) ([]models.WeatherLog, error)
}

// InsightsStore holds the single insights record. ReplaceInsights always overwrites
// the whole record; SetInsightsCity exists only for the legacy city-label patch.
type InsightsStore interface {
	GetInsights(ctx context.Context) (models.InsightsSummary, bool, error)
	ReplaceInsights(ctx context.Context, summary models.InsightsSummary) (models.InsightsSummary, error)
	SetInsightsCity(ctx context.Context, city string) (models.InsightsSummary, error)
}

// UserStore is CRUD over users with unique emails.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	WeatherLogStore
	InsightsStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
