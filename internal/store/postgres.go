package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

const uniqueViolation = "23505"

// insightsID is the primary key of the single insights row.
const insightsID = 1

// PostgresStore is a Store backed by PostgreSQL through sqlx and lib/pq.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the pool for migrations.
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

const logColumns = `id, source, city, latitude, longitude, timestamp, temperature_c, humidity,
	wind_speed_m_s, weather_code, precipitation_probability, weather_description`

// InsertLog inserts log, assigning an ID when empty. An existing ID is left
// untouched and its stored row is returned.
func (s *PostgresStore) InsertLog(ctx context.Context, log models.WeatherLog) (models.WeatherLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO weather_logs (`+logColumns+`)
		VALUES (:id, :source, :city, :latitude, :longitude, :timestamp, :temperature_c, :humidity,
			:wind_speed_m_s, :weather_code, :precipitation_probability, :weather_description)
		ON CONFLICT (id) DO NOTHING`, log)
	if err != nil {
		return models.WeatherLog{}, fmt.Errorf("insert weather log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.WeatherLog{}, fmt.Errorf("insert weather log: %w", err)
	}
	if n > 0 {
		return log, nil
	}
	var existing models.WeatherLog
	if err := s.db.GetContext(ctx, &existing, `SELECT `+logColumns+` FROM weather_logs WHERE id = $1`, log.ID); err != nil {
		return models.WeatherLog{}, fmt.Errorf("load existing weather log: %w", err)
	}
	return existing, nil
}

// ListLogs returns all logs ordered by timestamp, then insertion sequence.
func (s *PostgresStore) ListLogs(ctx context.Context, order Order) ([]models.WeatherLog, error) {
	dir := "ASC"
	if order == Descending {
		dir = "DESC"
	}
	var logs []models.WeatherLog
	query := `SELECT ` + logColumns + ` FROM weather_logs ORDER BY timestamp ` + dir + `, seq ` + dir
	if err := s.db.SelectContext(ctx, &logs, query); err != nil {
		return nil, fmt.Errorf("list weather logs: %w", err)
	}
	return logs, nil
}

type insightsRow struct {
	City         sql.NullString `db:"city"`
	TotalRecords int            `db:"total_records"`
	Data         []byte         `db:"data"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r insightsRow) summary() models.InsightsSummary {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)
	return models.InsightsSummary{
		City:         r.City.String,
		TotalRecords: r.TotalRecords,
		Data:         data,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// GetInsights returns the insights row, or false when none was ever written.
func (s *PostgresStore) GetInsights(ctx context.Context) (models.InsightsSummary, bool, error) {
	var row insightsRow
	err := s.db.GetContext(ctx, &row,
		`SELECT city, total_records, data, created_at, updated_at FROM weather_insights WHERE id = $1`, insightsID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InsightsSummary{}, false, nil
	}
	if err != nil {
		return models.InsightsSummary{}, false, fmt.Errorf("get insights: %w", err)
	}
	return row.summary(), true, nil
}

// ReplaceInsights upserts the singleton row. created_at is kept on conflict.
func (s *PostgresStore) ReplaceInsights(ctx context.Context, summary models.InsightsSummary) (models.InsightsSummary, error) {
	var row insightsRow
	err := s.db.GetContext(ctx, &row, `INSERT INTO weather_insights (id, city, total_records, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET city = EXCLUDED.city, total_records = EXCLUDED.total_records,
			data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING city, total_records, data, created_at, updated_at`,
		insightsID, summary.City, summary.TotalRecords, []byte(summary.Data), s.now())
	if err != nil {
		return models.InsightsSummary{}, fmt.Errorf("replace insights: %w", err)
	}
	return row.summary(), nil
}

// SetInsightsCity patches only the city label. Returns ErrNotFound without a row.
func (s *PostgresStore) SetInsightsCity(ctx context.Context, city string) (models.InsightsSummary, error) {
	var row insightsRow
	err := s.db.GetContext(ctx, &row, `UPDATE weather_insights SET city = $1, updated_at = $2 WHERE id = $3
		RETURNING city, total_records, data, created_at, updated_at`, city, s.now(), insightsID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InsightsSummary{}, ErrNotFound
	}
	if err != nil {
		return models.InsightsSummary{}, fmt.Errorf("set insights city: %w", err)
	}
	return row.summary(), nil
}

// BackfillInsightsCity sets city on an insights row that has none. It reports
// whether a row was changed.
func (s *PostgresStore) BackfillInsightsCity(ctx context.Context, city string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE weather_insights SET city = $1 WHERE id = $2 AND (city IS NULL OR city = '')`, city, insightsID)
	if err != nil {
		return false, fmt.Errorf("backfill insights city: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("backfill insights city: %w", err)
	}
	return n > 0, nil
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// CreateUser inserts user with fresh timestamps. A taken email returns ErrConflict.
func (s *PostgresStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (:id, :name, :email, :password_hash, :role, :created_at, :updated_at)`, user)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser returns the user with id, or ErrNotFound.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByEmail looks a user up by email, ignoring case. Returns ErrNotFound when absent.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by creation time.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser overwrites the mutable fields of an existing user.
func (s *PostgresStore) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	var out models.User
	err := s.db.GetContext(ctx, &out, `UPDATE users SET name = $1, email = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6 RETURNING `+userColumns,
		user.Name, user.Email, user.PasswordHash, user.Role, s.now(), user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}

// DeleteUser removes the user with id, or returns ErrNotFound.
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
