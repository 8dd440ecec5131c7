package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/internal/adapters/search"
	"github.com/adcatlas/curation-backend/internal/bootstrap"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/typesense"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	"github.com/adcatlas/curation-backend/pkg/config"
)

const pageSize = 200

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the catalog collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("adc-curation-indexer", cfg.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}
	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}
		if interval <= 0 {
			break
		}
		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")
		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		return fmt.Errorf("the indexer needs a persistent storage driver")
	}
	storage, err := bootstrap.OpenStorage(cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}
	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Warn().Str("collection", typesense.CatalogCollection).Msg("Deleting catalog collection")
		if err := tsClient.DropCatalog(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to delete collection")
		}
	}
	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	syncer := bootstrap.NewCatalogSync(storage, search.NewTypesenseCatalogWriter(tsClient), nil)
	stats, err := syncer.SyncAll(ctx, pageSize)
	if err != nil {
		return err
	}
	log.Info().
		Int("records", stats.Records).
		Int("components", stats.Components).
		Int("failed", stats.Failed).
		Msg("Catalog reindexed")
	return nil
}
