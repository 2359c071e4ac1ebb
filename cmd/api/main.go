package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/telemedicine-client/internal/api/router"
	"github.com/wolfman30/telemedicine-client/internal/app/bootstrap"
	appconfig "github.com/wolfman30/telemedicine-client/internal/config"
	"github.com/wolfman30/telemedicine-client/internal/http/handlers"
	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting telemedicine gateway",
		"env", cfg.Env,
		"port", cfg.Port,
		"providers", cfg.Providers,
		"cache_store", cfg.CacheStore,
	)

	stop := make(chan struct{})
	srv, err := buildServer(context.Background(), cfg, logger, stop)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a registry with the provider collectors and the Go
// runtime collectors.
func setupMetrics() (http.Handler, *metrics.ProviderMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pm := metrics.NewProviderMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), pm
}

// buildServer wires cache, providers and routes. Closing stop ends the rate
// limiter's background sweep.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, stop <-chan struct{}) (*http.Server, error) {
	metricsHandler, pm := setupMetrics()

	store, err := bootstrap.BuildCacheStore(ctx, cfg, logger, pm)
	if err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	m := bootstrap.BuildManager(cfg, bootstrap.ProviderDeps{
		Store:    store,
		Location: loc,
		Logger:   logger,
		Metrics:  pm,
	})

	var cacheTTL time.Duration
	if store != nil {
		cacheTTL = cfg.CacheTTL
	}
	telemedicine := handlers.NewTelemedicineHandler(handlers.TelemedicineConfig{
		Resolver: m,
		Logger:   logger,
		CacheTTL: cacheTTL,
		Location: loc,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Telemedicine:       telemedicine,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:          cfg.GatewayJWTSecret,
		RateLimit:          cfg.GatewayRateLimit,
		RateBurst:          cfg.GatewayRateBurst,
		Stop:               stop,
	})

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}
