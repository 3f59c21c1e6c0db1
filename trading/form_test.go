package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optfolio/ledger"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	good := map[string]float64{
		"100":       100,
		" 1,500.25": 1500.25,
		"$200":      200,
		"-5":        -5,
	}
	for in, want := range good {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "12abc", "NaN", "Inf"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestParseActions(t *testing.T) {
	t.Parallel()

	a, err := ParseCashAction(" Deposit ")
	require.NoError(t, err)
	assert.Equal(t, Deposit, a)
	_, err = ParseCashAction("transfer")
	assert.Error(t, err)

	s, err := ParseStockAction("")
	require.NoError(t, err)
	assert.Equal(t, Buy, s)
	s, err = ParseStockAction("SELL")
	require.NoError(t, err)
	assert.Equal(t, Sell, s)
	_, err = ParseStockAction("short")
	assert.ErrorIs(t, err, ErrInvalidTrade)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	stock := TradeForm{Symbol: " msft ", Type: ledger.Stock, StockAction: Sell, Strike: 10, ExpirationDate: jan19, Covered: true}.Normalize()
	assert.Equal(t, "MSFT", stock.Symbol)
	assert.Equal(t, ledger.STO, stock.Side)
	assert.Zero(t, stock.Strike)
	assert.True(t, stock.ExpirationDate.IsZero())
	assert.False(t, stock.Covered)

	// flags that do not apply to the side/type are dropped
	put := TradeForm{Type: ledger.Put, Side: ledger.BTO, Secured: true, Covered: true}.Normalize()
	assert.False(t, put.Secured)
	assert.False(t, put.Covered)

	call := TradeForm{Type: ledger.Call, Side: ledger.STO, Secured: true, Covered: true}.Normalize()
	assert.True(t, call.Covered)
	assert.False(t, call.Secured)
}

func TestStockLegCost(t *testing.T) {
	t.Parallel()

	leg := StockLeg{Shares: 100, Price: 182.5, Commission: 1}
	assert.InDelta(t, 18251, leg.Cost(), 1e-9)
}
