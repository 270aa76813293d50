// Package httpapi assembles the chi router for the sticker service.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"funmoji/internal/http/handlers"
	"funmoji/internal/middleware"
)

// Options carries the router's tunables.
type Options struct {
	Logger        zerolog.Logger
	DefaultLocale string
	// GenerateLimit caps generation requests per client IP per minute.
	GenerateLimit int
	// StaticDir, when set, serves materialized stickers under /static/.
	StaticDir string
	Registry  *prometheus.Registry
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.Locale(opts.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/styles", app.Styles)

	r.Route("/v1/stickers", func(r chi.Router) {
		limit := opts.GenerateLimit
		if limit <= 0 {
			limit = 10
		}
		r.With(middleware.RateLimit(limit, time.Minute)).Post("/generate", app.StickersGenerate)
		r.Get("/recent", app.StickersRecent)
	})

	if opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
