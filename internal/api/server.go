package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ryanbastic/go-chronos/internal/auth"
	"github.com/ryanbastic/go-chronos/internal/media"
	"github.com/ryanbastic/go-chronos/internal/metrics"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Logger      *slog.Logger
	Store       storage.Store
	Sessions    *auth.Issuer
	Identity    auth.IdentityVerifier
	Revocations auth.RevocationStore
	// Avatars is optional; profile updates with an image fail with 501 without it.
	Avatars media.AvatarStore
	// Backends are pinged by /api/readyz.
	Backends     []Backend
	CookieSecure bool
	// RateLimitRPS disables rate limiting when zero.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)
	if deps.RateLimitRPS > 0 {
		mux.Use(NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst).Middleware(logger))
	}
	mux.Use(Authenticate(deps.Sessions, deps.Revocations, logger))

	healthHandler := NewHealthHandler(deps.Backends, logger)
	mux.Get("/api/livez", healthHandler.Livez)
	mux.Get("/api/readyz", healthHandler.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	profileHandler := NewProfileHandler(deps.Store, deps.Avatars, logger)
	mux.Patch("/api/profile/me", profileHandler.UpdateProfile)

	config := huma.DefaultConfig("Chronos API", "1.0.0")
	config.Info.Description = "Time-tracking matrices painted with color-coded categories."
	api := humachi.New(mux, config)

	registerAuthRoutes(api, NewAuthHandler(deps.Store, deps.Sessions, deps.Identity, deps.Revocations, deps.CookieSecure, logger))
	registerProfileRoutes(api, profileHandler)
	registerMatrixRoutes(api, NewMatrixHandler(deps.Store, logger))
	registerCellRoutes(api, NewCellHandler(deps.Store, logger))
	registerCategoryRoutes(api, NewCategoryHandler(deps.Store, logger))

	return mux
}
