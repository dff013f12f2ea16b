package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/email-dispatch/internal/auth"
)

// NewRouter creates a chi.Mux with all routes, middleware, and handlers
// configured. authn may be nil or disabled, leaving /api/v1 open.
func NewRouter(d Deps, authn *auth.Authenticator, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))

	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(MethodNotAllowedHandler())

	// Unauthenticated operational endpoints
	r.Get("/", InfoHandler(d.Info))
	r.Get("/health", HealthHandler(d.Info, d.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/emails", func(r chi.Router) {
		if authn != nil {
			r.Use(authn.Middleware)
		}

		r.Post("/send", SendHandler(d.Dispatcher))
		r.Get("/health", ProviderHealthHandler(d.Providers, d.Info.Name))
		r.Get("/logs", LogsHandler(d.Logs))
		r.Get("/logs/db", DurableLogsHandler(d.Logs))
		r.Get("/stats", StatsHandler(d.Stats))
		r.Get("/stats/db", DurableStatsHandler(d.Stats))
		r.Get("/{id}/content", ContentHandler(d.Content))
	})

	return r
}
