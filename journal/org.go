package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/optfolio/ledger"
)

// FormatTradeOrg renders a trade as an Org-mode block for a trading journal.
// Structured facts go in the PROPERTIES drawer; the headings below it are
// left for notes.
func FormatTradeOrg(t ledger.Trade) string {
	title := t.Symbol
	if t.IsOption() {
		title = fmt.Sprintf("%s %s %s", t.Symbol, t.Side, t.Type)
	} else if !t.IsCash() {
		title = fmt.Sprintf("%s %s", t.Symbol, t.Side)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s)\n", title, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":TYPE: %s\n", t.Type)
	fmt.Fprintf(&b, ":STATUS: %s\n", t.Status)
	fmt.Fprintf(&b, ":START_DATE: %s\n", orgDate(t.StartDate))
	if t.IsOption() {
		fmt.Fprintf(&b, ":EXPIRATION: %s\n", orgDate(t.ExpirationDate))
		fmt.Fprintf(&b, ":STRIKE: %.2f\n", t.Strike)
	}
	fmt.Fprintf(&b, ":CONTRACTS: %g\n", t.Contracts)
	fmt.Fprintf(&b, ":PRICE: %.2f\n", t.Price)
	fmt.Fprintf(&b, ":PREMIUM: %.2f\n", t.Premium)
	fmt.Fprintf(&b, ":COMMISSION: %.2f\n", t.Commission)
	if t.ClosingPrice != 0 {
		fmt.Fprintf(&b, ":CLOSING_PRICE: %.2f\n", t.ClosingPrice)
	}
	if t.Covered {
		b.WriteString(":COVERED: t\n")
	}
	if t.Secured {
		b.WriteString(":SECURED: t\n")
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- ")
	b.WriteString(t.Notes)
	b.WriteString("\n\n")
	b.WriteString("*** Management\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []ledger.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// orgDate renders an inactive Org timestamp, e.g. [2024-01-19 Fri].
func orgDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return "[" + t.Format("2006-01-02 Mon") + "]"
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
