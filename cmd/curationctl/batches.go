package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
)

var stagingCmd = &cobra.Command{
	Use:   "staging",
	Short: "Staging component operations",
}

var stagingBulkApproveCmd = &cobra.Command{
	Use:   "bulk-approve <id>...",
	Short: "Approve staging components, reporting failures per id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.services.Staging.BulkApprove(cmd.Context(), args, actorFrom(cmd))
		return reportBatch(cmd, result, err)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review queue operations",
}

var reviewAutoApproveCmd = &cobra.Command{
	Use:   "auto-approve",
	Short: "Approve pending changes the auto-approve policy accepts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recordID, _ := cmd.Flags().GetString("record")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.services.Reviews.AutoApprove(cmd.Context(), repositories.ReviewFilter{
			RecordID: recordID,
			Limit:    limit,
		})
		return reportBatch(cmd, result, err)
	},
}

// reportBatch prints whatever completed, even when the batch aborted
func reportBatch(cmd *cobra.Command, result *entities.BatchResult, err error) error {
	if result != nil {
		if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
			return perr
		}
		log.Info().
			Int("approved", result.ApprovedCount).
			Int("failed", result.FailedCount).
			Int("skipped", result.SkippedCount).
			Msg("batch finished")
	}
	return err
}

func init() {
	reviewAutoApproveCmd.Flags().String("record", "", "only consider changes for this record")
	reviewAutoApproveCmd.Flags().Int("limit", 0, "maximum pending changes to consider (0 = all)")

	stagingCmd.AddCommand(stagingBulkApproveCmd)
	reviewCmd.AddCommand(reviewAutoApproveCmd)
	rootCmd.AddCommand(stagingCmd, reviewCmd)
}
