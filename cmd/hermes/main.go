package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/hermes/internal/api"
	"github.com/UnknownOlympus/hermes/internal/config"
	"github.com/UnknownOlympus/hermes/internal/dashboard"
	"github.com/UnknownOlympus/hermes/internal/form"
	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/internal/geocoding/cache"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/UnknownOlympus/hermes/internal/service"
	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

// pinger is anything the health check can ping.
type pinger interface {
	Ping(ctx context.Context) error
}

// main is the entry point of the application.
func main() {
	// Cancelled on SIGINT/SIGTERM for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	repo, notifier, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open shipment store: %v", err)
	}
	defer closeStore()

	geoProvider, closeCache, err := newGeocoder(ctx, cfg, logger, appMetrics)
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}
	defer closeCache()

	logger.InfoContext(ctx, "Geocoding provider initialized",
		"type", cfg.Geocoder.Provider, "cache", cfg.Geocoder.CachePath)

	feed := service.NewFeed(logger, repo, appMetrics, cfg.ResyncInterval)
	if err = feed.Start(ctx); err != nil {
		log.Fatalf("Failed to load shipments: %v", err)
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		logger.WarnContext(ctx, "HERMES_SESSION_SECRET is not set, sessions will not survive a restart")
		if secret, err = session.RandomSecret(); err != nil {
			log.Fatalf("Failed to create session secret: %v", err)
		}
	}
	bootstrap, err := session.NewBootstrap(secret, cfg.Session.TTL, logger)
	if err != nil {
		log.Fatalf("Failed to create session bootstrap: %v", err)
	}

	registry := dashboard.NewRegistry(dashboard.Deps{
		Log:      logger,
		Source:   feed,
		Writer:   feed,
		Geocoder: geoProvider,
		InFlight: form.NewInFlight(),
		Metrics:  appMetrics,
	}, cfg.DashboardIdle)

	handler := api.NewServer(logger, bootstrap, registry, feed)
	handler.SetAllowedOrigins(cfg.AllowedOrigins)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "store", cfg.Store)

	// Start the monitoring server in a goroutine to allow main to listen for signals.
	go startMonitoringServer(ctx, logger, reg, feed, cfg.MonitorPort)

	go feed.Run(ctx, notifier)
	go registry.Run(ctx)

	go func() {
		logger.InfoContext(ctx, "Starting API server", "port", cfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "API server failed", "error", err)
			stop()
		}
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownTimeout := 10 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = apiServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "API server shutdown failed", "error", err)
	}

	logger.InfoContext(shutdownCtx, "Application stopped gracefully.")
}

// openStore selects the document store backend. The returned notifier is nil for
// backends that cannot observe writes from other processes.
func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (repository.Interface, repository.Notifier, func(), error) {
	switch cfg.Store {
	case storeMemory:
		logger.WarnContext(ctx, "Using in-memory shipment store, data is lost on restart")
		return repository.NewMemoryRepository(), nil, func() {}, nil
	case storePostgres:
		pool, err := repository.NewDatabase(
			ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, nil, nil, err
		}

		repo := repository.NewRepository(pool, logger)
		if err = repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}

		return repo, repository.NewListener(pool, logger), pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported store %q, expected %s or %s", cfg.Store, storeMemory, storePostgres)
	}
}

// newGeocoder builds the configured provider, wrapped in metrics and, when a cache
// path is set, a persistent cache.
func newGeocoder(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	appMetrics *metrics.Metrics,
) (geocoding.Provider, func(), error) {
	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}

	var instrumented geocoding.Provider = geocoding.NewInstrumentedProvider(provider, cfg.Geocoder.Provider, appMetrics)

	if cfg.Geocoder.CachePath == "" {
		return instrumented, func() {}, nil
	}

	store, err := cache.Open(ctx, cfg.Geocoder.CachePath)
	if err != nil {
		return nil, nil, err
	}

	closeCache := func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close geocode cache", "error", err)
		}
	}

	return geocoding.NewCachedProvider(instrumented, store, appMetrics, logger), closeCache, nil
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the given port and logs the server's status and any errors encountered.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - store: The shipment store checked by /healthz.
// - port: The port number on which the server will listen.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	store pinger,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if err := store.Ping(req.Context()); err != nil {
			status, body = http.StatusServiceUnavailable, "store ping failed"
		}
		writer.WriteHeader(status)
		_, err := writer.Write([]byte(body))
		if err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
