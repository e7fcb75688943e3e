package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct ErrorCategory,
// including sentinel errors, wrapped errors, and network errors.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"not found", ErrNotFound, ErrorCategoryNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", ErrNotFound), ErrorCategoryNotFound},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"upstream failure", fmt.Errorf("%w: HTTP 503", ErrUpstreamFailure), ErrorCategoryUpstream5xx},
		{"circuit open", fmt.Errorf("%w: pokeapi", ErrCircuitOpen), ErrorCategoryCircuitOpen},
		{"malformed", fmt.Errorf("%w: missing id", errMalformed), ErrorCategoryParsing},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, ErrorCategoryNetwork},
		{"connection in message", errors.New("connection refused"), ErrorCategoryNetwork},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
