package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/adcatlas/curation-backend/internal/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the curation schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		storage, err := bootstrap.OpenStorage(cfg)
		if err != nil {
			return err
		}
		defer storage.Close()

		if err := storage.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info().Str("storage", cfg.Storage.Driver).Msg("migration complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
