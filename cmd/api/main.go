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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/internal/api/handlers"
	"github.com/adcatlas/curation-backend/internal/api/routes"
	"github.com/adcatlas/curation-backend/internal/application/services"
	"github.com/adcatlas/curation-backend/internal/bootstrap"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	"github.com/adcatlas/curation-backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			observability.EnableOTelExport(zerolog.InfoLevel)
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	storage, err := bootstrap.OpenStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer storage.Close()

	redisClient := bootstrap.OpenRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cacheProvider := bootstrap.NewCache(redisClient, time.Duration(cfg.Curation.GateCacheTTLSeconds)*time.Second)
	eventBus := bootstrap.NewEventBus(redisClient)

	svc, err := bootstrap.NewServices(cfg.Curation, storage, cacheProvider, eventBus, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid curation configuration")
	}

	// Keep gate checklists hot for records awaiting promotion
	services.NewGateWarmingService(storage.Records, svc.Gates).StartPeriodicWarming(ctx, 5*time.Minute)

	// Materialize approved components and final records as they land
	var catalogSync *services.CatalogSyncService
	if writer := bootstrap.OpenCatalog(ctx, cfg); writer != nil {
		catalogSync = bootstrap.NewCatalogSync(storage, writer, eventBus)
		if err := catalogSync.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start catalog sync")
			catalogSync = nil
		} else {
			log.Info().Msg("Catalog sync started")
		}
	}

	router := routes.NewRouter(
		handlers.NewRecordHandler(svc.Records, svc.Gates, svc.Promotion),
		handlers.NewProvenanceHandler(svc.Ledger, storage.Evidence),
		handlers.NewEnrichmentHandler(svc.Enrichment),
		handlers.NewReviewHandler(svc.Reviews),
		handlers.NewStagingHandler(svc.Staging),
		storage.Evidence,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("storage", cfg.Storage.Driver).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if catalogSync != nil {
		catalogSync.Stop()
	}
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
