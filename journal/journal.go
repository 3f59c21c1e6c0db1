// Package journal persists the ledger. Every committed account.Txn is written
// through in a single store transaction so a restart reproduces the exact
// ledger order and balances.
package journal

import (
	"context"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/ledger"
)

type Journal interface {
	// Commit persists one txn and the balances that result from it.
	Commit(ctx context.Context, tx account.Txn, b account.Balances) error
	// Trades returns the stored ledger in order.
	Trades(ctx context.Context) ([]ledger.Trade, error)
	// Balances returns the last committed balances. ok is false when
	// nothing has been committed yet.
	Balances(ctx context.Context) (b account.Balances, ok bool, err error)
	Close() error
}

// Discard keeps nothing. Useful for tests and dry runs.
type Discard struct{}

func (Discard) Commit(context.Context, account.Txn, account.Balances) error { return nil }
func (Discard) Trades(context.Context) ([]ledger.Trade, error)              { return nil, nil }
func (Discard) Balances(context.Context) (account.Balances, bool, error) {
	return account.Balances{}, false, nil
}
func (Discard) Close() error { return nil }
