// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc2text/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect recorded conversion runs",
	Long: `Report reads the run ledger written by convert. Each run records the
document, the vision backend, image counts by outcome, and whether the
conversion was converted, degraded, or failed.`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one run as YAML",
	Long: `Show prints a run with its per-image outcomes. The id may be shortened
to any unique prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runReportShow,
}

func init() {
	reportCmd.PersistentFlags().String("db", "doc2text.db", "run ledger database")
	viper.BindPFlag("report.db", reportCmd.PersistentFlags().Lookup("db"))

	reportListCmd.Flags().Int("limit", report.DefaultListLimit, "maximum number of runs to list")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportCmd)
}

func openReport() (*report.Store, error) {
	return report.Open(viper.GetString("report.db"))
}

func runReportList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openReport()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	report.WriteSummary(cmd.OutOrStdout(), runs)
	return nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	store, err := openReport()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Run(context.Background(), args[0])
	switch {
	case errors.Is(err, report.ErrNotFound):
		return fmt.Errorf("no run matches %q", args[0])
	case errors.Is(err, report.ErrAmbiguous):
		return fmt.Errorf("%q matches more than one run; use a longer prefix", args[0])
	case err != nil:
		return err
	}
	return report.WriteYAML(cmd.OutOrStdout(), run)
}
