package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telemedicine-client/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telemedicine-client/internal/http/middleware"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Telemedicine       *handlers.TelemedicineHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// JWTSecret enables bearer auth on provider routes when set.
	JWTSecret string

	// Per client IP. A zero RateLimit disables limiting.
	RateLimit float64
	RateBurst int
	// Stop ends background work started by middleware.
	Stop <-chan struct{}
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Telemedicine != nil {
		r.Group(func(api chi.Router) {
			if cfg.JWTSecret != "" {
				api.Use(httpmiddleware.ClientJWT(cfg.JWTSecret))
			}
			if cfg.RateLimit > 0 {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimit, cfg.RateBurst, cfg.Stop))
			}
			api.Mount("/v1/providers", cfg.Telemedicine.Routes())
		})
	}

	return r
}
