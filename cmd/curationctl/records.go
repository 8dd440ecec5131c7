package main

import (
	"github.com/spf13/cobra"
)

var gatesCmd = &cobra.Command{
	Use:   "gates <record-id>",
	Short: "Print the gate checklist for a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.services.Gates.Check(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <record-id>",
	Short: "Promote a record to final when its required gates pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.services.Promotion.Promote(cmd.Context(), args[0], actorFrom(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(gatesCmd, promoteCmd)
}
