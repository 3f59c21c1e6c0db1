package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/report"
	"github.com/rustyeddy/optfolio/trading"
)

var cashCmd = &cobra.Command{
	Use:   "cash <deposit|withdraw> <amount>",
	Short: "Deposit or withdraw cash",
	Long: `Record a cash movement. Amounts may be typed as they appear on a
statement, e.g. "$1,500.25". Withdrawals never take cash below zero.

Examples:
  optfolio cash deposit 10000
  optfolio cash withdraw '$250'`,
	Args: cobra.ExactArgs(2),
	RunE: runCash,
}

func init() {
	rootCmd.AddCommand(cashCmd)
}

func runCash(cmd *cobra.Command, args []string) error {
	action, err := trading.ParseCashAction(args[0])
	if err != nil {
		return err
	}
	// unreadable amounts are ignored like non-positive ones
	amount, err := trading.ParseAmount(args[1])
	if err != nil {
		amount = 0
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		t, err := a.engine.CashTransaction(ctx, action, amount)
		if err != nil {
			return err
		}
		if t.ID == "" {
			fmt.Fprintln(out, "Nothing to record")
			return nil
		}
		fmt.Fprintf(out, "✓ %s %s\n", action, report.SignedCurrency(t.Premium))
		fmt.Fprintf(out, "  Cash: %s\n", report.Currency(a.engine.Balances().Cash))
		return nil
	})
}
