// Package httptransport assembles the API router: the shared middleware
// chain, health and readiness probes, the Prometheus endpoint, and the
// authenticated /api/v1 feature routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hirelane/internal/platform/metrics"
	"hirelane/internal/platform/middleware"
	"hirelane/internal/transport/http/shared"
)

// Registrar is implemented by feature handlers; each attaches its routes to
// the authenticated subrouter.
type Registrar interface {
	Register(r chi.Router)
}

// Dependency is a named readiness check. Checks should be cheap pings.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config carries the router's collaborators.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	JWTValidator   middleware.JWTValidator
	RequestTimeout time.Duration
	Dependencies   []Dependency
	Features       []Registrar
}

const defaultRequestTimeout = 30 * time.Second

// NewRouter builds the full HTTP surface. Probes and /metrics stay outside
// auth; everything under /api/v1 requires a bearer token.
func NewRouter(cfg Config) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady(cfg.Logger, cfg.Dependencies))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(timeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		for _, f := range cfg.Features {
			f.Register(api)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings each dependency with a short deadline. One failure makes
// the whole probe fail, naming the dependency.
func handleReady(logger *slog.Logger, deps []Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, dep := range deps {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := dep.Check(ctx)
			cancel()
			if err != nil {
				logger.WarnContext(r.Context(), "readiness check failed",
					"dependency", dep.Name,
					"error", err,
				)
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"failed": dep.Name,
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
