package routes

import (
	"net/http"
	"strings"

	"tenf/portal/internal/api"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes builds the HTTP handler. gatherer backs /metrics; nil
// uses the default registry.
func RegisterRoutes(deps *api.Dependencies, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(deps.Auth.PublicURL),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", middleware.HeaderRequestID},
		ExposedHeaders:   []string{"Content-Disposition", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.PrincipalMiddleware(deps.Auth.Sessions, deps.Auth.Roles, deps.Auth.AdminTokens))
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	handlers := api.NewHandlers(deps)

	r.Get("/healthCheck", handlers.HealthCheckHandler())
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(apiRouter chi.Router) {
		RegisterAPIRoutes(apiRouter, handlers, deps)
	})

	logging.Info("Router initialized with metrics and logging middleware")
	return r
}

// allowedOrigins trusts the portal front-end and local development.
func allowedOrigins(publicURL string) []string {
	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if publicURL != "" {
		origins = append(origins, strings.TrimRight(publicURL, "/"))
	}
	return origins
}
