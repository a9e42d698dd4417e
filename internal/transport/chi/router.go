package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/metrics"
)

// RouterConfig holds the HTTP surface limits.
type RouterConfig struct {
	// RateLimitPerMinute caps building lookups per client IP. Zero disables the limit.
	RateLimitPerMinute int
	// MaxBodyBytes caps the request body size. Zero disables the limit.
	MaxBodyBytes int64
}

// NewRouter mounts the API under /api/v1 and the Prometheus handler on /metrics.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", s.HealthCheck)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitPerMinute > 0 {
				r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
					}),
				))
			}
			if cfg.MaxBodyBytes > 0 {
				r.Use(chiMiddleware.RequestSize(cfg.MaxBodyBytes))
			}
			r.Post("/building/info", s.BuildingInfo)
		})
	})

	return r
}
