package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/auth"
	"github.com/kjstillabower/weather-insights-service/internal/models"
	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

// UserSummary is the public view of a user returned on login.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResult is the login response body.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	User        UserSummary `json:"user"`
}

// AuthService registers accounts and exchanges credentials for access tokens.
type AuthService struct {
	users  *UserService
	tokens *auth.Tokens
	logger *zap.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users *UserService, tokens *auth.Tokens, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Register creates an account with the default role. A taken email yields ErrEmailInUse.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	return s.users.Create(ctx, NewUser{Name: name, Email: email, Password: password})
}

// Login verifies credentials and issues a token. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			observability.LoggerFromContext(ctx, s.logger).Info("login rejected")
		}
		return LoginResult{}, err
	}
	token, err := s.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{
		AccessToken: token,
		User:        UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
	}, nil
}

// Authenticate verifies a bearer token.
func (s *AuthService) Authenticate(token string) (auth.Identity, error) {
	return s.tokens.Verify(token)
}
