package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/lantern-bot/app/modules/lantern"
	"github.com/Black-And-White-Club/lantern-bot/config"
	"github.com/Black-And-White-Club/lantern-bot/internal/db/bundb"
	"github.com/Black-And-White-Club/lantern-bot/internal/eventbus"
	"github.com/Black-And-White-Club/lantern-bot/internal/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
)

const (
	serviceName     = "lantern"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := observability.NewLogger(observability.Config{
		ServiceName: serviceName,
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
		LogFormat:   cfg.Observability.LogFormat,
	}, nil)
	slog.SetDefault(logger)
	tracer := observability.NewTracer(serviceName)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var db *bun.DB
	if cfg.Lantern.Storage == config.StoragePostgres {
		db, err = bundb.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Error("Failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
	}

	var bus eventbus.EventBus
	if cfg.NATS.URL == "" {
		logger.Warn("No NATS URL configured, commands and broadcasts stay in process")
		bus = eventbus.NewInMemoryEventBus(logger)
	} else {
		bus, err = eventbus.NewEventBus(ctx, eventbus.Config{
			URL:        cfg.NATS.URL,
			NKeySeed:   cfg.NATS.NKeySeed,
			QueueGroup: serviceName,
		}, logger)
		if err != nil {
			logger.Error("Failed to create event bus", slog.Any("error", err))
			os.Exit(1)
		}
	}
	defer bus.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: shutdownTimeout}, watermill.NewSlogLogger(logger))
	if err != nil {
		logger.Error("Failed to create watermill router", slog.Any("error", err))
		os.Exit(1)
	}

	httpRouter := chi.NewRouter()
	httpRouter.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	module, err := lantern.NewLanternModule(ctx, cfg, lantern.Deps{
		Logger:     logger,
		Tracer:     tracer,
		Registry:   registry,
		DB:         db,
		EventBus:   bus,
		Router:     router,
		HTTPRouter: httpRouter,
	})
	if err != nil {
		logger.Error("Failed to create lantern module", slog.Any("error", err))
		os.Exit(1)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go module.Run(ctx, &wg)

	go func() {
		if err := router.Run(ctx); err != nil {
			logger.Error("Watermill router stopped", slog.Any("error", err))
			cancel()
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           httpRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down lantern")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", slog.Any("error", err))
	}
	if err := router.Close(); err != nil {
		logger.Error("Error closing watermill router", slog.Any("error", err))
	}
	if err := module.Close(shutdownCtx); err != nil {
		logger.Error("Error closing lantern module", slog.Any("error", err))
	}
	wg.Wait()

	logger.Info("Lantern stopped")
}
