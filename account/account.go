// Package account holds the balance sheet kept in lockstep with the ledger
// and the transaction value that mutates both as one unit.
package account

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/optfolio/ledger"
)

// Balances is the cached running total derived from ledger mutations.
// PortfolioValue is an external input and is never derived here.
type Balances struct {
	Cash             float64 `json:"cash" yaml:"cash"`
	LockedCollateral float64 `json:"locked_collateral" yaml:"locked_collateral"`
	PremiumCollected float64 `json:"premium_collected" yaml:"premium_collected"`
	PortfolioValue   float64 `json:"portfolio_value" yaml:"portfolio_value"`
}

// Txn is one atomic ledger transaction: every trade change and balance delta
// produced by a single operation.
type Txn struct {
	Op      string         `json:"op"`
	Append  []ledger.Trade `json:"append,omitempty"`
	Replace []ledger.Trade `json:"replace,omitempty"`
	Remove  []string       `json:"remove,omitempty"`

	CashDelta    float64 `json:"cash_delta"`
	LockedDelta  float64 `json:"locked_delta"`
	PremiumDelta float64 `json:"premium_delta"`
}

// Empty reports whether the txn changes nothing.
func (tx Txn) Empty() bool {
	return len(tx.Append) == 0 && len(tx.Replace) == 0 && len(tx.Remove) == 0 &&
		tx.CashDelta == 0 && tx.LockedDelta == 0 && tx.PremiumDelta == 0
}

// Apply returns b with the txn's deltas added, rounded to cents.
func (b Balances) Apply(tx Txn) Balances {
	b.Cash = ledger.Sum(b.Cash, tx.CashDelta)
	b.LockedCollateral = ledger.Sum(b.LockedCollateral, tx.LockedDelta)
	b.PremiumCollected = ledger.Sum(b.PremiumCollected, tx.PremiumDelta)
	return b
}

// Account is the explicit context every trading operation works against.
type Account struct {
	Ledger   *ledger.Ledger
	Balances Balances
}

func New(trades []ledger.Trade, b Balances) (*Account, error) {
	l, err := ledger.New(trades...)
	if err != nil {
		return nil, err
	}
	return &Account{Ledger: l, Balances: b}, nil
}

func (a *Account) Clone() *Account {
	return &Account{Ledger: a.Ledger.Clone(), Balances: a.Balances}
}

var ErrNegativeCollateral = errors.New("locked collateral would go negative")

// Apply returns a new account with tx applied. The receiver is never
// modified, so a failed txn leaves no partial state behind.
func (a *Account) Apply(tx Txn) (*Account, error) {
	next := a.Clone()

	for _, id := range tx.Remove {
		if err := next.Ledger.Remove(id); err != nil {
			return nil, fmt.Errorf("apply %s: %w", tx.Op, err)
		}
	}
	for _, t := range tx.Replace {
		if err := next.Ledger.Replace(t.ID, t); err != nil {
			return nil, fmt.Errorf("apply %s: %w", tx.Op, err)
		}
	}
	if err := next.Ledger.Append(tx.Append...); err != nil {
		return nil, fmt.Errorf("apply %s: %w", tx.Op, err)
	}

	next.Balances = next.Balances.Apply(tx)
	if next.Balances.LockedCollateral < 0 {
		return nil, fmt.Errorf("apply %s: %w", tx.Op, ErrNegativeCollateral)
	}
	return next, nil
}
