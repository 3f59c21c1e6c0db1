// Package report renders ledger data for people: option nomenclature,
// currency, dates, and plain-text tables for the CLI.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/optfolio/ledger"
)

// Nomenclature is the trader's shorthand for a trade, e.g.
// "Jan 19 '24 185C @$2.50". Stock renders as its symbol.
func Nomenclature(t ledger.Trade, includePrice bool) string {
	if t.Type == ledger.Stock {
		return t.Symbol
	}

	kind := "P"
	if t.Type == ledger.Call {
		kind = "C"
	}
	exp := t.ExpirationDate
	s := fmt.Sprintf("%s %d '%s %s%s",
		exp.Format("Jan"), exp.Day(), exp.Format("06"),
		strconv.FormatFloat(t.Strike, 'f', -1, 64), kind)
	if includePrice {
		s += fmt.Sprintf(" @$%.2f", t.Price)
	}
	return s
}

// Label identifies a trade in lists: the nomenclature without price.
func Label(t ledger.Trade) string {
	return Nomenclature(t, false)
}

// ContractDisplay shows options with an explicit sign; stock as-is.
func ContractDisplay(t ledger.Trade) string {
	n := strconv.FormatFloat(t.Quantity(), 'f', -1, 64)
	if t.Type == ledger.Stock {
		return strconv.FormatFloat(t.Contracts, 'f', -1, 64)
	}
	if t.Contracts < 0 {
		return "-" + n
	}
	return "+" + n
}

// Currency formats an amount as US dollars, e.g. "$1,234.56" or "-$51.00".
func Currency(amount float64) string {
	cents := decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// SignedCurrency is Currency with a leading "+" on positive amounts.
func SignedCurrency(amount float64) string {
	s := Currency(amount)
	if amount > 0 && s != Currency(0) {
		return "+" + s
	}
	return s
}

// Date is the short month/day form, e.g. "Jan 2".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2")
}

// Remaining renders days to expiration, or "-" for stock.
func Remaining(t ledger.Trade, now time.Time) string {
	d, ok := ledger.RemainingDays(t, now)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%dd", d)
}
