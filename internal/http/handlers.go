// Package http exposes the service over HTTP: routing, middleware, handlers and
// the JSON error envelope.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-insights-service/internal/observability"
	"github.com/kjstillabower/weather-insights-service/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// HealthConfig holds the dependency checks reported by /health.
type HealthConfig struct {
	// StorePing checks the persistence backend.
	StorePing func(ctx context.Context) error
	// CachePing, when set, checks cache reachability. Used when backend is memcached.
	CachePing func() error
	Version   string
}

// Services groups the business services the handlers call.
type Services struct {
	Weather *service.WeatherService
	Users   *service.UserService
	Auth    *service.AuthService
	Pokemon *service.PokemonService
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather          *service.WeatherService
	users            *service.UserService
	auth             *service.AuthService
	pokemon          *service.PokemonService
	healthConfig     *HealthConfig
	logger           *zap.Logger
	shuttingDown     atomic.Bool
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(svcs Services, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		weather:      svcs.Weather,
		users:        svcs.Users,
		auth:         svcs.Auth,
		pokemon:      svcs.Pokemon,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// SetShuttingDown flips /health to shutting-down. Called once the shutdown signal arrives.
func (h *Handler) SetShuttingDown(v bool) {
	h.shuttingDown.Store(v)
}

// IsShuttingDown reports whether shutdown has begun.
func (h *Handler) IsShuttingDown() bool {
	return h.shuttingDown.Load()
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	version := "dev"
	if h.healthConfig != nil && h.healthConfig.Version != "" {
		version = h.healthConfig.Version
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "weather-insights-service",
		"version":   version,
		"checks":    result.checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down, then store and cache checks.
// Any failed check reports degraded.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := make(map[string]string)
	if h.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	reason := ""
	if h.healthConfig.StorePing != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.healthConfig.StorePing(pingCtx)
		cancel()
		checks["store"] = checkStatus(err)
		if err != nil {
			reason = "store_unreachable"
		}
	}
	if h.healthConfig.CachePing != nil {
		err := h.healthConfig.CachePing()
		checks["cache"] = checkStatus(err)
		if err != nil && reason == "" {
			reason = "cache_unreachable"
		}
	}
	if reason != "" {
		return healthResult{"degraded", http.StatusServiceUnavailable, reason, checks}
	}
	return healthResult{"healthy", http.StatusOK, "", checks}
}

func checkStatus(err error) string {
	if err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps a service error onto the error envelope. Unmapped errors
// are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context(), nil)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrPokemonNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Pokémon not found")
	case errors.Is(err, service.ErrEmailInUse):
		writeError(w, r, http.StatusConflict, "EMAIL_IN_USE", "Email already in use")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
	case errors.Is(err, service.ErrUpstream):
		logger.Debug("upstream error", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Upstream service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request timed out", zap.Error(err))
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed JSON: %v", err)
	}
	return nil
}
