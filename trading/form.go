package trading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/optfolio/ledger"
)

type StockAction string

const (
	Buy  StockAction = "buy"
	Sell StockAction = "sell"
)

func ParseStockAction(s string) (StockAction, error) {
	switch StockAction(strings.ToLower(strings.TrimSpace(s))) {
	case Buy, "":
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("%w: unknown stock action %q", ErrInvalidTrade, s)
}

// TradeForm is the typed input for opening a trade. Side is ignored for
// stock; StockAction decides it instead.
type TradeForm struct {
	Symbol         string      `json:"symbol"`
	Type           ledger.Type `json:"type"`
	Side           ledger.Side `json:"side,omitempty"`
	StockAction    StockAction `json:"stock_action,omitempty"`
	StartDate      time.Time   `json:"start_date"`
	ExpirationDate time.Time   `json:"expiration_date,omitzero"`
	Strike         float64     `json:"strike,omitempty"`
	Price          float64     `json:"price"`
	Quantity       int         `json:"quantity"`
	Commission     float64     `json:"commission"`
	Notes          string      `json:"notes,omitempty"`
	Covered        bool        `json:"covered,omitempty"`
	Secured        bool        `json:"secured,omitempty"`
}

// Normalize upper-cases the symbol, resolves the stock side, and drops
// fields that do not apply to the trade type.
func (f TradeForm) Normalize() TradeForm {
	f.Symbol = strings.ToUpper(strings.TrimSpace(f.Symbol))
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Type == ledger.Stock {
		f.Side = ledger.BTO
		if f.StockAction == Sell {
			f.Side = ledger.STO
		} else {
			f.StockAction = Buy
		}
		f.Strike = 0
		f.ExpirationDate = time.Time{}
	}
	if f.Type != ledger.Call || f.Side != ledger.STO {
		f.Covered = false
	}
	if f.Type != ledger.Put || f.Side != ledger.STO {
		f.Secured = false
	}
	return f
}

func (f TradeForm) Validate() error {
	switch {
	case f.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidTrade)
	case f.Symbol == ledger.CashSymbol:
		return fmt.Errorf("%w: %s is reserved for cash transactions", ErrInvalidTrade, ledger.CashSymbol)
	case !f.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTrade, f.Type)
	case !f.Side.Valid():
		return fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, f.Side)
	case !positive(f.Price):
		return fmt.Errorf("%w: price must be positive", ErrInvalidTrade)
	case f.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidTrade)
	case !nonNegative(f.Commission):
		return fmt.Errorf("%w: commission must be a non-negative number", ErrInvalidTrade)
	}
	if f.Type != ledger.Stock {
		if !positive(f.Strike) {
			return fmt.Errorf("%w: options need a strike", ErrInvalidTrade)
		}
		if f.ExpirationDate.IsZero() {
			return fmt.Errorf("%w: options need an expiration date", ErrInvalidTrade)
		}
	}
	return nil
}

// EditForm replaces the economic fields of an existing trade. Zero dates
// and a zero strike keep the trade's current values.
type EditForm struct {
	Side           ledger.Side `json:"side"`
	Type           ledger.Type `json:"type"`
	StartDate      time.Time   `json:"start_date,omitzero"`
	ExpirationDate time.Time   `json:"expiration_date,omitzero"`
	Strike         float64     `json:"strike,omitempty"`
	Price          float64     `json:"price"`
	Commission     float64     `json:"commission"`
}

func (f EditForm) Validate() error {
	switch {
	case !f.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTrade, f.Type)
	case !f.Side.Valid():
		return fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, f.Side)
	case !positive(f.Price):
		return fmt.Errorf("%w: price must be positive", ErrInvalidTrade)
	case !nonNegative(f.Commission):
		return fmt.Errorf("%w: commission must be a non-negative number", ErrInvalidTrade)
	case !nonNegative(f.Strike):
		return fmt.Errorf("%w: strike must be a non-negative number", ErrInvalidTrade)
	}
	return nil
}

type CashAction string

const (
	Deposit  CashAction = "deposit"
	Withdraw CashAction = "withdraw"
)

func ParseCashAction(s string) (CashAction, error) {
	switch CashAction(strings.ToLower(strings.TrimSpace(s))) {
	case Deposit:
		return Deposit, nil
	case Withdraw:
		return Withdraw, nil
	}
	return "", fmt.Errorf("%w: unknown cash action %q (want deposit or withdraw)", ErrInvalidTrade, s)
}

// ParseAmount reads a user-entered dollar amount such as "1,500.25" or
// "$200". Anything non-numeric is ErrInvalidAmount.
func ParseAmount(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// nonNegative rejects negatives, NaN and infinities.
func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
