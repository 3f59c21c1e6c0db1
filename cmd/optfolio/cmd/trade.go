package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optfolio/internal/id"
	"github.com/rustyeddy/optfolio/journal"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/report"
	"github.com/rustyeddy/optfolio/trading"
)

const dateLayout = "2006-01-02"

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Record and manage trades",
	Long: `Open, close, roll, assign, expire, edit and remove trades.

Examples:
  optfolio trade add -s AAPL -t put --side STO --strike 175 --exp 2024-01-19 -p 2.10 --secured
  optfolio trade add -s AAPL -t stock --action buy -q 100 -p 182.50
  optfolio trade close <trade-id> -p 0.45
  optfolio trade roll <trade-id> --exp 2024-02-16 --close-price 0.45 --open-price 1.60
  optfolio trade expire`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Preview and record a new trade",
	Long: `Compute the cash and collateral impact of a trade and record it.

A covered call on a symbol without enough shares also buys the missing
shares at the current price. Use --dry-run to preview only.`,
	Args: cobra.NoArgs,
	RunE: runTradeAdd,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Show one trade as an Org entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var tradeCloseCmd = &cobra.Command{
	Use:   "close <trade-id>",
	Short: "Close some or all contracts of an open trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeClose,
}

var tradeAssignCmd = &cobra.Command{
	Use:   "assign <trade-id>",
	Short: "Record assignment of a short option",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeAssign,
}

var tradeRollCmd = &cobra.Command{
	Use:   "roll <trade-id>",
	Short: "Close an open option and reopen it at a new expiration",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeRoll,
}

var tradeExpireCmd = &cobra.Command{
	Use:   "expire [trade-id]",
	Short: "Expire one option, or every option past its expiration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTradeExpire,
}

var tradeRemoveCmd = &cobra.Command{
	Use:   "remove <trade-id>",
	Short: "Delete a trade and reverse its cash effect",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeRemove,
}

var tradeEditCmd = &cobra.Command{
	Use:   "edit <trade-id>",
	Short: "Change the terms of a recorded trade",
	Long: `Replace side, type, dates, strike, price or commission of a trade.
Flags left unset keep the trade's current values. Use --dry-run to
preview the premium and collateral difference.`,
	Args: cobra.ExactArgs(1),
	RunE: runTradeEdit,
}

var (
	addSymbol     string
	addType       string
	addSide       string
	addAction     string
	addStrike     float64
	addExp        string
	addDate       string
	addPrice      float64
	addQty        int
	addCommission float64
	addNotes      string
	addCovered    bool
	addSecured    bool
	addDryRun     bool

	closePrice      float64
	closeContracts  int
	closeCommission float64

	assignCommission float64

	rollExp        string
	rollStrike     float64
	rollClosePrice float64
	rollOpenPrice  float64
	rollContracts  int
	rollCommission float64

	editSide       string
	editType       string
	editStrike     float64
	editExp        string
	editDate       string
	editPrice      float64
	editCommission float64
	editDryRun     bool
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeAddCmd, tradeShowCmd, tradeCloseCmd, tradeAssignCmd,
		tradeRollCmd, tradeExpireCmd, tradeRemoveCmd, tradeEditCmd)

	f := tradeAddCmd.Flags()
	f.StringVarP(&addSymbol, "symbol", "s", "", "underlying symbol (required)")
	f.StringVarP(&addType, "type", "t", "put", "call, put or stock")
	f.StringVar(&addSide, "side", "STO", "STO or BTO (options)")
	f.StringVar(&addAction, "action", "buy", "buy or sell (stock)")
	f.Float64Var(&addStrike, "strike", 0, "strike price (options)")
	f.StringVar(&addExp, "exp", "", "expiration date YYYY-MM-DD (options)")
	f.StringVar(&addDate, "date", "", "trade date YYYY-MM-DD (default today)")
	f.Float64VarP(&addPrice, "price", "p", 0, "price per share or per contract share")
	f.IntVarP(&addQty, "qty", "q", 1, "contracts, or shares for stock")
	f.Float64Var(&addCommission, "commission", 0, "commission (default from config)")
	f.StringVar(&addNotes, "notes", "", "free-form notes")
	f.BoolVar(&addCovered, "covered", false, "short call is covered by shares")
	f.BoolVar(&addSecured, "secured", false, "short put is cash-secured")
	f.BoolVar(&addDryRun, "dry-run", false, "preview without recording")
	tradeAddCmd.MarkFlagRequired("symbol")

	tradeCloseCmd.Flags().Float64VarP(&closePrice, "price", "p", 0, "closing price per share")
	tradeCloseCmd.Flags().IntVar(&closeContracts, "contracts", 0, "contracts to close (default all)")
	tradeCloseCmd.Flags().Float64Var(&closeCommission, "commission", 0, "commission (default from config)")

	tradeAssignCmd.Flags().Float64Var(&assignCommission, "commission", 0, "assignment fee")

	rf := tradeRollCmd.Flags()
	rf.StringVar(&rollExp, "exp", "", "new expiration date YYYY-MM-DD (required)")
	rf.Float64Var(&rollStrike, "strike", 0, "new strike (default unchanged)")
	rf.Float64Var(&rollClosePrice, "close-price", 0, "price paid to close the current option")
	rf.Float64Var(&rollOpenPrice, "open-price", 0, "price of the new option")
	rf.IntVar(&rollContracts, "contracts", 0, "contracts to roll (default all)")
	rf.Float64Var(&rollCommission, "commission", 0, "commission (default from config)")
	tradeRollCmd.MarkFlagRequired("exp")

	ef := tradeEditCmd.Flags()
	ef.StringVar(&editSide, "side", "", "STO or BTO")
	ef.StringVarP(&editType, "type", "t", "", "call, put or stock")
	ef.Float64Var(&editStrike, "strike", 0, "strike price")
	ef.StringVar(&editExp, "exp", "", "expiration date YYYY-MM-DD")
	ef.StringVar(&editDate, "date", "", "trade date YYYY-MM-DD")
	ef.Float64VarP(&editPrice, "price", "p", 0, "price")
	ef.Float64Var(&editCommission, "commission", 0, "commission")
	ef.BoolVar(&editDryRun, "dry-run", false, "preview without recording")
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", trading.ErrInvalidTrade, s)
	}
	return t, nil
}

// commissionFlag returns the flag value when given, else the configured default.
func commissionFlag(cmd *cobra.Command, v float64, a *app) float64 {
	if cmd.Flags().Changed("commission") {
		return v
	}
	return a.cfg.Trading.DefaultCommission
}

func buildTradeForm(cmd *cobra.Command, a *app) (trading.TradeForm, error) {
	typ, err := ledger.ParseType(addType)
	if err != nil {
		return trading.TradeForm{}, fmt.Errorf("%w: %v", trading.ErrInvalidTrade, err)
	}
	form := trading.TradeForm{
		Symbol:     addSymbol,
		Type:       typ,
		Strike:     addStrike,
		Price:      addPrice,
		Quantity:   addQty,
		Commission: commissionFlag(cmd, addCommission, a),
		Notes:      addNotes,
		Covered:    addCovered,
		Secured:    addSecured,
	}
	if typ == ledger.Stock {
		if form.StockAction, err = trading.ParseStockAction(addAction); err != nil {
			return form, err
		}
	} else if form.Side, err = ledger.ParseSide(addSide); err != nil {
		return form, fmt.Errorf("%w: %v", trading.ErrInvalidTrade, err)
	}
	if form.ExpirationDate, err = parseDate(addExp); err != nil {
		return form, err
	}
	if form.StartDate, err = parseDate(addDate); err != nil {
		return form, err
	}
	return form, nil
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		form, err := buildTradeForm(cmd, a)
		if err != nil {
			return err
		}
		sum, err := a.engine.Propose(ctx, form)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printTradeSummary(out, sum)
		if addDryRun {
			fmt.Fprintln(out, "\n(dry run, nothing recorded)")
			return nil
		}

		trades, err := a.engine.Confirm(ctx, sum)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, t := range trades {
			fmt.Fprintf(out, "✓ Recorded %s %s %s\n", t.ID, t.Symbol, report.Nomenclature(t, true))
		}
		return nil
	})
}

func printTradeSummary(w io.Writer, s trading.TradeSummary) {
	t := s.Trade
	fmt.Fprintf(w, "Trade:       %s %s %s %s\n", t.Symbol, t.Side, report.Nomenclature(t, true), report.ContractDisplay(t))
	fmt.Fprintf(w, "Premium:     %s\n", report.SignedCurrency(s.CashImpact))
	fmt.Fprintf(w, "Commission:  %s\n", report.Currency(s.Commission))
	if s.CollateralImpact != 0 {
		fmt.Fprintf(w, "Collateral:  %s locked\n", report.Currency(s.CollateralImpact))
	}
	if leg := s.StockPurchase; leg != nil {
		fmt.Fprintf(w, "Stock leg:   buy %g %s @ %s (%s)\n", leg.Shares, t.Symbol, report.Currency(leg.Price), report.Currency(leg.Cost()))
	}
	fmt.Fprintf(w, "Cash change: %s\n", report.SignedCurrency(s.NetCashChange()))
}

func printAction(w io.Writer, s trading.ActionSummary) {
	fmt.Fprintf(w, "✓ %s %s\n", s.Op, s.TradeID)
	fmt.Fprintf(w, "  Cash impact:  %s\n", report.SignedCurrency(s.CashImpact))
	if s.CollateralReleased != 0 {
		fmt.Fprintf(w, "  Released:     %s\n", report.Currency(s.CollateralReleased))
	}
	if s.CollateralLocked != 0 {
		fmt.Fprintf(w, "  Locked:       %s\n", report.Currency(s.CollateralLocked))
	}
	fmt.Fprintf(w, "  Cash change:  %s\n", report.SignedCurrency(s.CashDelta))
	for _, t := range s.Trades {
		fmt.Fprintf(w, "  %s %s %s %s\n", t.ID, t.Symbol, report.Nomenclature(t, true), t.Status)
	}
}

// runTradeShow prints the trade as stored. With a SQLite journal that is
// the committed row rather than the in-memory copy.
func runTradeShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		var t ledger.Trade
		var err error
		if a.sqlite != nil {
			t, err = a.sqlite.GetTrade(ctx, args[0])
		} else {
			t, err = a.engine.Trade(args[0])
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, journal.FormatTradeOrg(t))
		if at, err := id.Time(t.ID); err == nil {
			fmt.Fprintf(out, "Recorded %s\n", at.Format(time.RFC3339))
		}
		return nil
	})
}

func runTradeClose(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		sum, err := a.engine.Close(ctx, trading.CloseRequest{
			TradeID:      args[0],
			ClosingPrice: closePrice,
			Contracts:    closeContracts,
			Commission:   commissionFlag(cmd, closeCommission, a),
		})
		if err != nil {
			return err
		}
		printAction(cmd.OutOrStdout(), sum)
		return nil
	})
}

func runTradeAssign(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		sum, err := a.engine.Assign(ctx, args[0], assignCommission)
		if err != nil {
			return err
		}
		printAction(cmd.OutOrStdout(), sum)
		return nil
	})
}

func runTradeRoll(cmd *cobra.Command, args []string) error {
	exp, err := parseDate(rollExp)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		sum, err := a.engine.Roll(ctx, trading.RollRequest{
			TradeID:       args[0],
			NewExpiration: exp,
			NewStrike:     rollStrike,
			ClosingPrice:  rollClosePrice,
			OpeningPrice:  rollOpenPrice,
			Contracts:     rollContracts,
			Commission:    commissionFlag(cmd, rollCommission, a),
		})
		if err != nil {
			return err
		}
		printAction(cmd.OutOrStdout(), sum)
		return nil
	})
}

func runTradeExpire(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			sum, err := a.engine.Expire(ctx, args[0])
			if err != nil {
				return err
			}
			printAction(out, sum)
			return nil
		}

		expired, err := a.engine.ExpireDue(ctx, time.Now())
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			fmt.Fprintln(out, "No options past expiration")
			return nil
		}
		for _, t := range expired {
			fmt.Fprintf(out, "✓ Expired %s %s %s\n", t.ID, t.Symbol, report.Label(t))
		}
		return nil
	})
}

func runTradeRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		sum, err := a.engine.Remove(ctx, args[0])
		if err != nil {
			return err
		}
		printAction(cmd.OutOrStdout(), sum)
		return nil
	})
}

// buildEditForm starts from the trade's current terms and applies the
// flags that were set.
func buildEditForm(cmd *cobra.Command, t ledger.Trade) (trading.EditForm, error) {
	form := trading.EditForm{
		Side:       t.Side,
		Type:       t.Type,
		Price:      t.Price,
		Commission: t.Commission,
	}
	var err error
	if editSide != "" {
		if form.Side, err = ledger.ParseSide(editSide); err != nil {
			return form, fmt.Errorf("%w: %v", trading.ErrInvalidTrade, err)
		}
	}
	if editType != "" {
		if form.Type, err = ledger.ParseType(editType); err != nil {
			return form, fmt.Errorf("%w: %v", trading.ErrInvalidTrade, err)
		}
	}
	if cmd.Flags().Changed("price") {
		form.Price = editPrice
	}
	if cmd.Flags().Changed("commission") {
		form.Commission = editCommission
	}
	form.Strike = editStrike
	if form.ExpirationDate, err = parseDate(editExp); err != nil {
		return form, err
	}
	if form.StartDate, err = parseDate(editDate); err != nil {
		return form, err
	}
	return form, nil
}

func runTradeEdit(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		t, err := a.engine.Trade(args[0])
		if err != nil {
			return err
		}
		form, err := buildEditForm(cmd, t)
		if err != nil {
			return err
		}
		sum, err := a.engine.ProposeEdit(ctx, t.ID, form)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Before:     %s %s %s\n", sum.Original.Side, report.Nomenclature(sum.Original, true), report.SignedCurrency(sum.Original.Premium))
		fmt.Fprintf(out, "After:      %s %s %s\n", sum.Updated.Side, report.Nomenclature(sum.Updated, true), report.SignedCurrency(sum.Updated.Premium))
		fmt.Fprintf(out, "Difference: %s\n", report.SignedCurrency(sum.PremiumDifference))
		if sum.CollateralDifference != 0 {
			fmt.Fprintf(out, "Collateral: %s\n", report.SignedCurrency(sum.CollateralDifference))
		}
		if editDryRun {
			fmt.Fprintln(out, "\n(dry run, nothing recorded)")
			return nil
		}
		if _, err := a.engine.ConfirmEdit(ctx, sum); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Updated %s\n", t.ID)
		return nil
	})
}
