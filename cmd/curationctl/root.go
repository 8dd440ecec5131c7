package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adcatlas/curation-backend/internal/bootstrap"
	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
	"github.com/adcatlas/curation-backend/pkg/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "curationctl",
	Short: "Admin tool for the ADC curation backend",
	Long:  "Applies the schema, checks promotion gates, promotes records and runs review and staging batches against the configured storage.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		observability.InitLogger("curationctl", cfg.Env)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("actor", defaultActor(), "reviewer id recorded on writes")
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "curationctl"
}

func actorFrom(cmd *cobra.Command) entities.Actor {
	id, _ := cmd.Flags().GetString("actor")
	return entities.HumanActor(id)
}

// app is the object graph one command runs against
type app struct {
	storage  *bootstrap.Storage
	services *bootstrap.Services
}

func openApp() (*app, error) {
	storage, err := bootstrap.OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	redisClient := bootstrap.OpenRedis(cfg)
	svc, err := bootstrap.NewServices(
		cfg.Curation,
		storage,
		bootstrap.NewCache(redisClient, time.Duration(cfg.Curation.GateCacheTTLSeconds)*time.Second),
		bootstrap.NewEventBus(redisClient),
		nil,
	)
	if err != nil {
		storage.Close()
		return nil, err
	}
	return &app{storage: storage, services: svc}, nil
}

func (a *app) Close() error {
	return a.storage.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
