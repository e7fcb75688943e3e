package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/auth"
	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/store"
)

// NewUser is the input for creating an account.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserService manages accounts. Passwords are stored only as bcrypt hashes.
type UserService struct {
	store  store.UserStore
	hasher auth.Hasher
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(users store.UserStore, hasher auth.Hasher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: users, hasher: hasher, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapUserErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrEmailInUse
	default:
		return err
	}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns the user with id or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, mapUserErr(err)
	}
	return u, nil
}

// Create hashes the password and stores the user. A taken email yields ErrEmailInUse.
func (s *UserService) Create(ctx context.Context, in NewUser) (models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	u, err := s.store.CreateUser(ctx, models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return models.User{}, mapUserErr(err)
	}
	observability.LoggerFromContext(ctx, s.logger).Info("user created", zap.String("user_id", u.ID))
	return u, nil
}

// Update applies the non-nil fields of upd. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, mapUserErr(err)
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		other, err := s.store.GetUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != id:
			return models.User{}, ErrEmailInUse
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return models.User{}, fmt.Errorf("lookup user: %w", err)
		}
		u.Email = email
	}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = hash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return models.User{}, mapUserErr(err)
	}
	return updated, nil
}

// Delete removes the user with id or returns ErrUserNotFound.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return mapUserErr(err)
	}
	observability.LoggerFromContext(ctx, s.logger).Info("user deleted", zap.String("user_id", id))
	return nil
}

// authenticate returns the user whose email and password match.
func (s *UserService) authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}
