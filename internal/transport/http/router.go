// Package http assembles the public router. Handlers stay in their own
// packages; this file only decides what mounts where.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credhandler "dhruva/internal/credential/handler"
	issuancehandler "dhruva/internal/issuance/handler"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/platform/middleware"
	registryhandler "dhruva/internal/registry/handler"
	"dhruva/internal/transport/http/shared"
	userhandler "dhruva/internal/user/handler"
	"dhruva/internal/verify"
)

// Handlers collects every mounted module.
type Handlers struct {
	Credentials *credhandler.Handler
	Users       *userhandler.Handler
	Issuance    *issuancehandler.Handler
	Verify      *verify.Handler
	Registry    *registryhandler.Handler
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Config carries router-level settings.
type Config struct {
	FrontendURL string
	UploadDir   string
}

// NewRouter builds the full HTTP surface.
func NewRouter(cfg Config, h Handlers, m *metrics.Metrics, logger *slog.Logger, checks map[string]HealthCheck) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(requestMetrics(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/credentials", h.Credentials.Routes)
		r.Route("/users", h.Users.Routes)
		r.Route("/issuance", h.Issuance.Routes)
		r.Route("/verify", h.Verify.Routes)
		r.Route("/registry", h.Registry.Routes)
	})

	// Uploaded credential documents, served as plain static files.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(checks))

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status":       http.StatusText(status),
			"dependencies": deps,
		})
	}
}

// requestMetrics records request duration against the matched chi route
// pattern rather than the raw path, keeping label cardinality bounded.
func requestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, strconv.Itoa(rec.status), start)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}
