package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/position"
	"github.com/rustyeddy/optfolio/pricing"
)

var jan19 = time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)

func call() ledger.Trade {
	return ledger.Trade{
		ID: "c1", Symbol: "AAPL", Side: ledger.STO, Type: ledger.Call,
		StartDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ExpirationDate: jan19,
		Strike: 185, Price: 2.5, Contracts: -1, Status: ledger.Open, Premium: 249, Commission: 1,
	}
}

func TestNomenclature(t *testing.T) {
	t.Parallel()

	c := call()
	assert.Equal(t, "Jan 19 '24 185C @$2.50", Nomenclature(c, true))
	assert.Equal(t, "Jan 19 '24 185C", Label(c))

	p := c
	p.Type = ledger.Put
	p.Strike = 182.5
	assert.Equal(t, "Jan 19 '24 182.5P", Nomenclature(p, false))

	s := ledger.Trade{Symbol: "MSFT", Type: ledger.Stock, Price: 350}
	assert.Equal(t, "MSFT", Nomenclature(s, true))
}

func TestContractDisplay(t *testing.T) {
	t.Parallel()

	c := call()
	assert.Equal(t, "-1", ContractDisplay(c))
	c.Contracts = 3
	assert.Equal(t, "+3", ContractDisplay(c))
	assert.Equal(t, "-50", ContractDisplay(ledger.Trade{Type: ledger.Stock, Contracts: -50}))
	assert.Equal(t, "100", ContractDisplay(ledger.Trade{Type: ledger.Stock, Contracts: 100}))
}

func TestCurrency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$1,234.56", Currency(1234.56))
	assert.Equal(t, "-$51.00", Currency(-51))
	assert.Equal(t, "$0.00", Currency(0))
	assert.Equal(t, "$0.30", Currency(0.1+0.2))
	assert.Equal(t, "+$249.00", SignedCurrency(249))
	assert.Equal(t, "-$18,251.00", SignedCurrency(-18251))
	assert.Equal(t, "$0.00", SignedCurrency(0.001))
}

func TestDateAndRemaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Jan 2", Date(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)))
	assert.Empty(t, Date(time.Time{}))

	now := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "3d", Remaining(call(), now))
	assert.Equal(t, "0d", Remaining(call(), jan19.AddDate(0, 0, 3)))
	assert.Equal(t, "-", Remaining(ledger.Trade{Type: ledger.Stock}, now))
}

func TestWriteTrades(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	now := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteTrades(&buf, []ledger.Trade{call()}, now))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Jan 19 '24 185C @$2.50")
	assert.Contains(t, lines[1], "+$249.00")
	assert.Contains(t, lines[1], "3d !")
}

func TestWritePositionsAndBalances(t *testing.T) {
	t.Parallel()

	trades := []ledger.Trade{
		{ID: "1", Symbol: "AAPL", Type: ledger.Stock, Side: ledger.BTO, Status: ledger.Open, Contracts: 100, Price: 180, Premium: -18001, Commission: 1},
		call(),
	}
	ps := position.Aggregate(context.Background(), trades, pricing.NewStatic(map[string]float64{"AAPL": 182.5}))

	var buf bytes.Buffer
	require.NoError(t, WritePositions(&buf, ps))
	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "$180.00")
	assert.Contains(t, out, "$182.50")
	// 250 stock gain + 249 premium
	assert.Contains(t, out, "+$499.00")

	buf.Reset()
	require.NoError(t, WriteBalances(&buf, account.Balances{Cash: 5099, LockedCollateral: 5000, PremiumCollected: 99}, 99, ledger.OneMonth))
	out = buf.String()
	assert.Contains(t, out, "$5,099.00")
	assert.Contains(t, out, "$10,099.00")
	assert.Contains(t, out, "Premium collected (1M)")
}
