package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/position"
)

// ExpiryWarningDays flags open options this close to expiration.
const ExpiryWarningDays = 5

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteTrades lists trades in ledger order.
func WriteTrades(w io.Writer, trades []ledger.Trade, now time.Time) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tSYMBOL\tTRADE\tSIDE\tQTY\tPREMIUM\tSTATUS\tLEFT\t")
	for _, t := range trades {
		left := ""
		if t.IsOption() && t.IsOpen() {
			left = Remaining(t, now)
			if ledger.ExpiringWithin(t, now, ExpiryWarningDays) {
				left += " !"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.ID, Date(t.StartDate), t.Symbol, Nomenclature(t, true), t.Side,
			ContractDisplay(t), SignedCurrency(t.Premium), t.Status, left)
	}
	return tw.Flush()
}

// WritePositions prints one row per symbol and a total P/L line.
func WritePositions(w io.Writer, ps position.Positions) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tSHARES\tAVG COST\tPRICE\tPREMIUMS\tOPEN OPTS\tP/L\t")
	for _, p := range ps.All() {
		price := Currency(p.CurrentPrice)
		if p.PriceStale {
			price += "*"
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\t%s\t%d\t%s\t\n",
			p.Symbol, p.Shares, Currency(p.AvgCostBasis), price,
			Currency(p.PremiumsReceived), len(p.OpenOptions), SignedCurrency(p.TotalPL()))
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t\t%s\t\n", SignedCurrency(ps.TotalPL()))
	return tw.Flush()
}

// WriteBalances prints the balance sheet plus windowed premium.
func WriteBalances(w io.Writer, b account.Balances, windowed float64, tf ledger.Timeframe) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Cash\t%s\n", Currency(b.Cash))
	fmt.Fprintf(tw, "Locked collateral\t%s\n", Currency(b.LockedCollateral))
	fmt.Fprintf(tw, "Cash + collateral\t%s\n", Currency(ledger.Sum(b.Cash, b.LockedCollateral)))
	fmt.Fprintf(tw, "Premium collected\t%s\n", Currency(b.PremiumCollected))
	fmt.Fprintf(tw, "Premium collected (%s)\t%s\n", tf, Currency(windowed))
	fmt.Fprintf(tw, "Portfolio value\t%s\n", Currency(b.PortfolioValue))
	return tw.Flush()
}
