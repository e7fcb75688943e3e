// Package service holds the business logic behind the HTTP API: weather ingestion
// and insights, users, authentication and the pokemon proxy.
package service

import (
	"errors"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPokemonNotFound    = errors.New("pokemon not found")
	ErrUpstream           = errors.New("upstream unavailable")
)
