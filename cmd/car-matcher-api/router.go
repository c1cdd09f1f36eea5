package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/car-matcher/cmd/car-matcher-api/handlers"
	"github.com/spherical-ai/spherical/libs/car-matcher/cmd/car-matcher-api/middleware"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
)

// Service is what the router needs from the recommendation service.
type Service interface {
	handlers.Recommender
	handlers.CarStore
}

// AppConfig holds router configuration.
type AppConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	AllowedOrigins []string
	ReadyChecks    map[string]handlers.Check
}

// DefaultAppConfig returns default configuration values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		ServiceName:    "car-matcher",
		RequestTimeout: 10 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, svc Service, cfg *AppConfig) http.Handler {
	if cfg == nil {
		cfg = DefaultAppConfig()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", handlers.Health(cfg.ServiceName))
	r.Get("/ready", handlers.Ready(cfg.ReadyChecks))

	recommendationHandler := handlers.NewRecommendationHandler(logger, svc)
	carHandler := handlers.NewCarHandler(logger, svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", recommendationHandler.Create)

		r.Route("/cars", func(r chi.Router) {
			r.Get("/", carHandler.List)
			r.Get("/{carId}", carHandler.Get)
			r.Get("/{carId}/suggested-tags", carHandler.SuggestTags)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Post("/normalize", handlers.NormalizeTags)
			r.Get("/vocabulary", handlers.Vocabulary)
		})

		r.Get("/budget-bands", handlers.BudgetBands)
	})

	return r
}
