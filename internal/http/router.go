package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

// RouterConfig holds the cross-cutting settings applied to API routes.
type RouterConfig struct {
	RequestTimeout time.Duration
	// Limiter throttles /api, /auth and /users. Nil disables rate limiting.
	Limiter *rate.Limiter
}

// NewRouter builds the full route table around h.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/weather/logs", h.CreateWeatherLog).Methods(http.MethodPost)
	api.HandleFunc("/weather/logs", h.ListWeatherLogs).Methods(http.MethodGet)
	api.HandleFunc("/weather/export.csv", h.ExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/weather/export.xlsx", h.ExportXLSX).Methods(http.MethodGet)
	api.HandleFunc("/weather/insights", h.GetInsights).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/pokemon", h.ListPokemon).Methods(http.MethodGet)
	api.HandleFunc("/pokemon/search", h.SearchPokemon).Methods(http.MethodGet)
	api.HandleFunc("/pokemon/{id}", h.GetPokemon).Methods(http.MethodGet)

	authRouter := router.PathPrefix("/auth").Subrouter()
	authRouter.Use(RateLimitMiddleware(cfg.Limiter))
	authRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	authRouter.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	users := router.PathPrefix("/users").Subrouter()
	users.Use(RateLimitMiddleware(cfg.Limiter))
	users.Use(TimeoutMiddleware(cfg.RequestTimeout))
	users.Use(AuthMiddleware(h.auth))
	users.HandleFunc("", h.ListUsers).Methods(http.MethodGet)
	users.HandleFunc("", h.CreateUser).Methods(http.MethodPost)
	users.HandleFunc("/{id}", h.GetUser).Methods(http.MethodGet)
	users.HandleFunc("/{id}", h.UpdateUser).Methods(http.MethodPatch)
	users.HandleFunc("/{id}", h.DeleteUser).Methods(http.MethodDelete)

	return router
}
