package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/cameron-eth/firstballotETL/internal/api/handler"
	"github.com/cameron-eth/firstballotETL/internal/cache"
	"github.com/cameron-eth/firstballotETL/internal/config"
)

// NewRouter creates the chi router with all middleware and routes.
func NewRouter(st handler.Store, appCache cache.Cache, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(PeerAddrMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LogMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5))

	c := corslib.New(corslib.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control", "X-Admin-Token"},
		ExposedHeaders: []string{"X-Process-Time", "X-Cache", "ETag"},
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(st, appCache, cfg, logger)

	// --- Routes ---
	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/combined", h.GetCombined)
		r.Get("/players/{playerID}/season", h.GetPlayerSeason)
		r.Get("/runs", h.ListRuns)

		r.With(AdminMiddleware(cfg.AdminToken)).Post("/admin/refresh", h.RefreshCombined)
	})

	return r
}
