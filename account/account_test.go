package account

import (
	"testing"

	"github.com/rustyeddy/optfolio/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(t *testing.T, cash float64, trades ...ledger.Trade) *Account {
	t.Helper()
	a, err := New(trades, Balances{Cash: cash, PortfolioValue: 125430.5})
	require.NoError(t, err)
	return a
}

func TestApplyReturnsNewAccount(t *testing.T) {
	t.Parallel()

	a := newAccount(t, 10000)
	put := ledger.Trade{ID: "p1", Symbol: "XYZ", Type: ledger.Put, Side: ledger.STO, Status: ledger.Open, Contracts: -1, Strike: 50, Price: 1, Premium: 99, Commission: 1, Secured: true}

	next, err := a.Apply(Txn{
		Op:           "confirm",
		Append:       []ledger.Trade{put},
		CashDelta:    99 - 5000,
		LockedDelta:  5000,
		PremiumDelta: 99,
	})
	require.NoError(t, err)

	assert.InDelta(t, 5099, next.Balances.Cash, 1e-9)
	assert.InDelta(t, 5000, next.Balances.LockedCollateral, 1e-9)
	assert.InDelta(t, 99, next.Balances.PremiumCollected, 1e-9)
	assert.Equal(t, 125430.5, next.Balances.PortfolioValue)
	assert.Equal(t, 1, next.Ledger.Len())

	assert.InDelta(t, 10000, a.Balances.Cash, 1e-9)
	assert.Equal(t, 0, a.Ledger.Len())
}

func TestApplyFailureLeavesAccountUntouched(t *testing.T) {
	t.Parallel()

	existing := ledger.Trade{ID: "x", Symbol: "AAPL", Type: ledger.Stock, Side: ledger.BTO, Status: ledger.Open, Contracts: 1}
	a := newAccount(t, 100, existing)

	_, err := a.Apply(Txn{Op: "remove", Remove: []string{"missing"}, CashDelta: 50})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = a.Apply(Txn{Op: "confirm", Append: []ledger.Trade{existing}, CashDelta: 50})
	assert.ErrorIs(t, err, ledger.ErrDuplicateID)

	_, err = a.Apply(Txn{Op: "close", LockedDelta: -1})
	assert.ErrorIs(t, err, ErrNegativeCollateral)

	assert.InDelta(t, 100, a.Balances.Cash, 1e-9)
	assert.Equal(t, 1, a.Ledger.Len())
}

func TestApplyRemoveReplaceAppendOrder(t *testing.T) {
	t.Parallel()

	t1 := ledger.Trade{ID: "1", Symbol: "A", Status: ledger.Open}
	t2 := ledger.Trade{ID: "2", Symbol: "B", Status: ledger.Open}
	a := newAccount(t, 0, t1, t2)

	closed := t2
	closed.Status = ledger.Closed
	next, err := a.Apply(Txn{
		Remove:  []string{"1"},
		Replace: []ledger.Trade{closed},
		Append:  []ledger.Trade{{ID: "3", Symbol: "C"}},
	})
	require.NoError(t, err)

	all := next.Ledger.All()
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)
	assert.Equal(t, ledger.Closed, all[0].Status)
	assert.Equal(t, "3", all[1].ID)
}

func TestBalancesApplyRoundsToCents(t *testing.T) {
	t.Parallel()

	b := Balances{Cash: 0.1}.Apply(Txn{CashDelta: 0.2})
	assert.Equal(t, 0.3, b.Cash)
	assert.True(t, Txn{}.Empty())
	assert.False(t, Txn{CashDelta: 1}.Empty())
}
