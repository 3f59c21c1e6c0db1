package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/report"
	"github.com/rustyeddy/optfolio/trading"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show per-symbol positions with P/L",
	Long: `Aggregate the ledger into one position per symbol: shares held,
average cost basis, premiums received, open options and P/L at the
current price. Prices marked * could not be quoted and use the default.`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show cash, collateral and premium collected",
	Args:  cobra.NoArgs,
	RunE:  runBalances,
}

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades in ledger order",
	Args:  cobra.NoArgs,
	RunE:  runTrades,
}

var expiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List open options expiring soon",
	Args:  cobra.NoArgs,
	RunE:  runExpiring,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the journal's commit log, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var portfolioValueCmd = &cobra.Command{
	Use:   "portfolio-value <amount>",
	Short: "Record the externally reported portfolio value",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioValue,
}

var (
	timeframe    string
	expiringDays int
	historyLimit int
)

func init() {
	rootCmd.AddCommand(positionsCmd, balancesCmd, tradesCmd, expiringCmd, historyCmd, portfolioValueCmd)

	balancesCmd.Flags().StringVar(&timeframe, "tf", "All", "premium window: 1M, 3M, 1Y or All")
	tradesCmd.Flags().StringVar(&timeframe, "tf", "All", "only trades opened in window: 1M, 3M, 1Y or All")
	expiringCmd.Flags().IntVar(&expiringDays, "days", report.ExpiryWarningDays, "days ahead")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries (0 for all)")
}

func runPositions(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		return report.WritePositions(cmd.OutOrStdout(), a.engine.Positions(ctx))
	})
}

func runBalances(cmd *cobra.Command, args []string) error {
	tf, err := ledger.ParseTimeframe(timeframe)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		return report.WriteBalances(cmd.OutOrStdout(), a.engine.Balances(), a.engine.PremiumCollected(tf), tf)
	})
}

func runTrades(cmd *cobra.Command, args []string) error {
	tf, err := ledger.ParseTimeframe(timeframe)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		now := time.Now()
		return report.WriteTrades(cmd.OutOrStdout(), ledger.Filter(a.engine.Trades(), tf, now), now)
	})
}

func runExpiring(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		trades := a.engine.Expiring(expiringDays)
		if len(trades) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing expires in the next %d days\n", expiringDays)
			return nil
		}
		return report.WriteTrades(cmd.OutOrStdout(), trades, time.Now())
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.sqlite == nil {
			return fmt.Errorf("history requires the sqlite journal")
		}
		recs, err := a.sqlite.History(ctx, historyLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tWHEN\tOP\tTRADES\tCASH\tLOCKED\tPREMIUM\t")
		for _, r := range recs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
				r.Seq, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Op, len(r.TradeIDs),
				report.SignedCurrency(r.CashDelta), report.SignedCurrency(r.LockedDelta),
				report.SignedCurrency(r.PremiumDelta))
		}
		return tw.Flush()
	})
}

func runPortfolioValue(cmd *cobra.Command, args []string) error {
	v, err := trading.ParseAmount(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.engine.SetPortfolioValue(ctx, v); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Portfolio value %s\n", report.Currency(v))
		return nil
	})
}
