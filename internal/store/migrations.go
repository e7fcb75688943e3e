package store

import (
	"context"
	"fmt"
)

// schema is applied in order. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS weather_logs (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		city TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		temperature_c DOUBLE PRECISION,
		humidity DOUBLE PRECISION,
		wind_speed_m_s DOUBLE PRECISION,
		weather_code INTEGER,
		precipitation_probability DOUBLE PRECISION,
		weather_description TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS weather_logs_timestamp_idx ON weather_logs (timestamp)`,
	`CREATE TABLE IF NOT EXISTS weather_insights (
		id SMALLINT PRIMARY KEY,
		city TEXT,
		total_records INTEGER NOT NULL DEFAULT 0,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
}

// Migrate creates the tables the PostgresStore needs.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
