package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/journal"
	"github.com/rustyeddy/optfolio/report"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import trades into the ledger",
	Long: `Append trades written by "optfolio export".

Each trade's premium is applied to cash and open secured puts lock their
collateral, so removing an imported trade undoes the import. Closing cash
flows of closed trades are not replayed; reconcile with "cash" if needed.

Examples:
  optfolio import csv trades.csv`,
}

var importCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Import trades from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportCSV,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importCSVCmd)
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	trades, err := journal.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		added, err := a.engine.Import(ctx, trades)
		if err != nil {
			return err
		}
		if len(added) == 0 {
			fmt.Fprintln(out, "Nothing to import")
			return nil
		}
		fmt.Fprintf(out, "✓ Imported %d trades\n", len(added))
		fmt.Fprintf(out, "  Cash: %s\n", report.Currency(a.engine.Balances().Cash))
		return nil
	})
}
