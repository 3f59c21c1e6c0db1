package trading

import (
	"time"

	"github.com/rustyeddy/optfolio/ledger"
)

// StockLeg is the share purchase attached to a covered call when the
// position does not already hold enough shares.
type StockLeg struct {
	Shares     float64 `json:"shares"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
}

// Cost is the cash paid for the leg, commission included.
func (l StockLeg) Cost() float64 {
	return -ledger.Premium(ledger.Stock, ledger.BTO, l.Shares, l.Price, l.Commission)
}

// TradeSummary is the computed impact of a proposed trade. Nothing has been
// written when one is returned.
type TradeSummary struct {
	Form             TradeForm    `json:"form"`
	Trade            ledger.Trade `json:"trade"`
	CashImpact       float64      `json:"cash_impact"`
	CollateralImpact float64      `json:"collateral_impact"`
	NetCredit        float64      `json:"net_credit"`
	NetDebit         float64      `json:"net_debit"`
	Commission       float64      `json:"commission"`
	StockPurchase    *StockLeg    `json:"stock_purchase,omitempty"`
}

// NetCashChange is what confirming the summary does to cash.
func (s TradeSummary) NetCashChange() float64 {
	v := []float64{s.CashImpact, -s.CollateralImpact}
	if s.StockPurchase != nil {
		v = append(v, -s.StockPurchase.Cost())
	}
	return ledger.Sum(v...)
}

// ActionSummary reports what a lifecycle operation did. CashImpact is the
// trade-level figure shown to the user; CashDelta is the full change to cash
// including collateral moving in or out.
type ActionSummary struct {
	Op                 string         `json:"op"`
	TradeID            string         `json:"trade_id"`
	CashImpact         float64        `json:"cash_impact"`
	CollateralReleased float64        `json:"collateral_released,omitempty"`
	CollateralLocked   float64        `json:"collateral_locked,omitempty"`
	CashDelta          float64        `json:"cash_delta"`
	Trades             []ledger.Trade `json:"trades"`
}

// CloseRequest closes some or all contracts of an open trade. Contracts 0
// closes everything.
type CloseRequest struct {
	TradeID      string  `json:"trade_id"`
	ClosingPrice float64 `json:"closing_price"`
	Contracts    int     `json:"contracts,omitempty"`
	Commission   float64 `json:"commission"`
}

// RollRequest closes an open option and reopens it at a new expiration and,
// optionally, a new strike. NewStrike 0 keeps the current strike.
type RollRequest struct {
	TradeID       string    `json:"trade_id"`
	NewExpiration time.Time `json:"new_expiration"`
	NewStrike     float64   `json:"new_strike,omitempty"`
	ClosingPrice  float64   `json:"closing_price"`
	OpeningPrice  float64   `json:"opening_price"`
	Contracts     int       `json:"contracts,omitempty"`
	Commission    float64   `json:"commission"`
}

type EditSummary struct {
	TradeID              string       `json:"trade_id"`
	Form                 EditForm     `json:"form"`
	Original             ledger.Trade `json:"original"`
	Updated              ledger.Trade `json:"updated"`
	PremiumDifference    float64      `json:"premium_difference"`
	CollateralDifference float64      `json:"collateral_difference,omitempty"`
}
