// Package validation checks request payloads and query inputs before they reach the service layer.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest wraps every payload validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// ErrQueryEmpty is returned when a pokemon search query is empty after trimming.
var ErrQueryEmpty = errors.New("query is required")

// ErrQueryTooLong is returned when a pokemon search query exceeds MaxQueryLen.
var ErrQueryTooLong = errors.New("query too long")

// ErrQueryInvalidChars is returned when a query contains characters outside a-z, 0-9 and hyphen.
var ErrQueryInvalidChars = errors.New("query contains invalid characters")

// MaxQueryLen bounds pokemon search queries.
const MaxQueryLen = 64

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UpdateUserRequest is the body of PATCH /users/{id}. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
}

// Struct validates v against its tags. The returned error wraps ErrInvalidRequest
// and names the first failing field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(fieldErrs[0]))
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// PokemonQuery trims and lowercases a search query and restricts it to
// letters a-z, digits and hyphen.
func PokemonQuery(input string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(input))
	if q == "" {
		return "", ErrQueryEmpty
	}
	if len(q) > MaxQueryLen {
		return "", ErrQueryTooLong
	}
	for _, c := range q {
		if !isAllowedQueryRune(c) {
			return "", ErrQueryInvalidChars
		}
	}
	return q, nil
}

func isAllowedQueryRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
}

// Page parses a 1-based page number. Missing, malformed or non-positive values yield 1.
func Page(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
