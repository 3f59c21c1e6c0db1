// Package ledger holds the trade record and the ordered ledger that is the
// single source of truth for every money movement in a portfolio.
package ledger

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CashSymbol marks pure cash-movement records (deposits and withdrawals).
const CashSymbol = "CASH"

// OptionMultiplier is the number of shares controlled by one option contract.
const OptionMultiplier = 100

type Side string

const (
	STO Side = "STO" // sell to open; a stock sale for Type Stock
	BTO Side = "BTO" // buy to open; a stock purchase for Type Stock
)

func (s Side) Valid() bool { return s == STO || s == BTO }

type Type string

const (
	Call  Type = "Call"
	Put   Type = "Put"
	Stock Type = "Stock"
)

func (t Type) Valid() bool { return t == Call || t == Put || t == Stock }

type Status string

const (
	Open     Status = "open"
	Closed   Status = "closed"
	Expired  Status = "expired"
	Assigned Status = "assigned"
)

func (s Status) Valid() bool {
	switch s {
	case Open, Closed, Expired, Assigned:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool { return s != Open }

// ParseSide accepts STO/BTO in any case.
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToUpper(strings.TrimSpace(s)))
	if !side.Valid() {
		return "", fmt.Errorf("unknown side %q", s)
	}
	return side, nil
}

// ParseType accepts call/put/stock in any case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	case "stock", "s":
		return Stock, nil
	}
	return "", fmt.Errorf("unknown trade type %q", s)
}

// Trade is one ledger event. Contracts is signed: negative for STO and stock
// sales, positive for BTO and stock purchases. Premium is the signed cash
// effect of the event with Commission already folded in.
type Trade struct {
	ID             string    `json:"id" yaml:"id"`
	Symbol         string    `json:"symbol" yaml:"symbol"`
	Side           Side      `json:"side" yaml:"side"`
	Type           Type      `json:"type" yaml:"type"`
	StartDate      time.Time `json:"start_date" yaml:"start_date"`
	ExpirationDate time.Time `json:"expiration_date,omitzero" yaml:"expiration_date,omitempty"`
	Strike         float64   `json:"strike,omitempty" yaml:"strike,omitempty"`
	Price          float64   `json:"price" yaml:"price"`
	Contracts      float64   `json:"contracts" yaml:"contracts"`
	Status         Status    `json:"status" yaml:"status"`
	Premium        float64   `json:"premium" yaml:"premium"`
	Commission     float64   `json:"commission" yaml:"commission"`
	Covered        bool      `json:"covered,omitempty" yaml:"covered,omitempty"`
	Secured        bool      `json:"secured,omitempty" yaml:"secured,omitempty"`
	ClosingPrice   float64   `json:"closing_price,omitempty" yaml:"closing_price,omitempty"`
	Notes          string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// AssignedFromPrefix starts the notes of a stock leg created by assignment.
const AssignedFromPrefix = "Assigned from "

func (t Trade) IsCash() bool   { return t.Symbol == CashSymbol }
func (t Trade) IsOption() bool { return t.Type == Call || t.Type == Put }
func (t Trade) IsOpen() bool   { return t.Status == Open }

// FromAssignment reports whether t is the stock leg of an assigned option.
func (t Trade) FromAssignment() bool {
	return t.Type == Stock && strings.HasPrefix(t.Notes, AssignedFromPrefix)
}

// Quantity is the unsigned contract (or share) count.
func (t Trade) Quantity() float64 { return math.Abs(t.Contracts) }

// Multiplier is 100 for options and 1 for stock.
func (t Trade) Multiplier() float64 { return Multiplier(t.Type) }

// IsSecuredPut reports whether the trade is a cash-secured short put with a strike.
func (t Trade) IsSecuredPut() bool {
	return t.Type == Put && t.Side == STO && t.Secured && t.Strike > 0
}

// IsCoveredCall reports whether the trade is a short call backed by shares.
func (t Trade) IsCoveredCall() bool {
	return t.Type == Call && t.Side == STO && t.Covered
}

// Collateral is the cash reserved against a secured put for its full quantity.
func (t Trade) Collateral() float64 {
	if !t.IsSecuredPut() {
		return 0
	}
	return CollateralFor(t.Strike, t.Quantity())
}

// Multiplier returns the contract multiplier for a trade type.
func Multiplier(typ Type) float64 {
	if typ == Stock {
		return 1
	}
	return OptionMultiplier
}

// SignedContracts applies the side's sign convention to an unsigned quantity.
func SignedContracts(side Side, qty float64) float64 {
	qty = math.Abs(qty)
	if side == STO {
		return -qty
	}
	return qty
}
