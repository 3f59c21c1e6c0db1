package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/journal"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger",
	Long: `Write every trade in ledger order.

Subcommands:
  csv  - One row per trade, for spreadsheets
  org  - An Org-mode trading journal

Examples:
  optfolio export csv -o trades.csv
  optfolio export org > journal.org`,
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export trades as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExportCSV,
}

var exportOrgCmd = &cobra.Command{
	Use:   "org",
	Short: "Export trades as an Org journal",
	Args:  cobra.NoArgs,
	RunE:  runExportOrg,
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCSVCmd, exportOrgCmd)
	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		trades := a.engine.Trades()
		if exportOutput == "" {
			return journal.WriteCSV(cmd.OutOrStdout(), trades)
		}
		if err := journal.ExportCSV(exportOutput, trades); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d trades to %s\n", len(trades), exportOutput)
		return nil
	})
}

func runExportOrg(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		trades := a.engine.Trades()
		org := journal.FormatTradesOrg(trades)
		if exportOutput == "" {
			_, err := fmt.Fprint(cmd.OutOrStdout(), org)
			return err
		}
		if err := os.WriteFile(exportOutput, []byte(org), 0644); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d trades to %s\n", len(trades), exportOutput)
		return nil
	})
}
