package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

// MemoryStore is a concurrency-safe in-memory Store. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	logs     []models.WeatherLog
	logIndex map[string]int
	insights *models.InsightsSummary
	users    map[string]models.User
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logIndex: make(map[string]int),
		users:    make(map[string]models.User),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// InsertLog stores a copy of log, assigning an ID when empty. A log whose ID is
// already stored is not inserted again; the stored copy is returned.
func (s *MemoryStore) InsertLog(ctx context.Context, log models.WeatherLog) (models.WeatherLog, error) {
	if err := ctx.Err(); err != nil {
		return models.WeatherLog{}, err
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.logIndex[log.ID]; ok {
		return s.logs[i], nil
	}
	s.logIndex[log.ID] = len(s.logs)
	s.logs = append(s.logs, log)
	return log, nil
}

// ListLogs returns all logs sorted by timestamp. Ties keep insertion order.
func (s *MemoryStore) ListLogs(ctx context.Context, order Order) ([]models.WeatherLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.WeatherLog, len(s.logs))
	copy(out, s.logs)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if order == Descending {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// GetInsights returns the insights record, or false when none was ever written.
func (s *MemoryStore) GetInsights(ctx context.Context) (models.InsightsSummary, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.InsightsSummary{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.insights == nil {
		return models.InsightsSummary{}, false, nil
	}
	return *s.insights, true, nil
}

// ReplaceInsights overwrites the insights record. CreatedAt survives the overwrite.
func (s *MemoryStore) ReplaceInsights(ctx context.Context, summary models.InsightsSummary) (models.InsightsSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.InsightsSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	summary.CreatedAt = now
	if s.insights != nil {
		summary.CreatedAt = s.insights.CreatedAt
	}
	summary.UpdatedAt = now
	s.insights = &summary
	return summary, nil
}

// SetInsightsCity patches only the city of the existing record.
func (s *MemoryStore) SetInsightsCity(ctx context.Context, city string) (models.InsightsSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.InsightsSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insights == nil {
		return models.InsightsSummary{}, ErrNotFound
	}
	s.insights.City = city
	s.insights.UpdatedAt = s.now()
	return *s.insights, nil
}

// CreateUser stores user, returning ErrConflict if the email is taken.
func (s *MemoryStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTakenLocked(user.Email, "") {
		return models.User{}, ErrConflict
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	return user, nil
}

// GetUser returns the user with id or ErrNotFound.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

// GetUserByEmail returns the user with email or ErrNotFound.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// ListUsers returns users ordered by creation time.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateUser replaces the stored user with the same ID.
func (s *MemoryStore) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if s.emailTakenLocked(user.Email, user.ID) {
		return models.User{}, ErrConflict
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now()
	s.users[user.ID] = user
	return user, nil
}

// DeleteUser removes the user with id or returns ErrNotFound.
func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) emailTakenLocked(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
