package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/optfolio/ledger"
	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrgOption(t *testing.T) {
	t.Parallel()

	trade := ledger.Trade{
		ID:             "01HQ3K5ZJ8ABCDEF",
		Symbol:         "AAPL",
		Side:           ledger.STO,
		Type:           ledger.Call,
		StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		ExpirationDate: time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC),
		Strike:         185,
		Price:          2.5,
		Contracts:      -1,
		Status:         ledger.Open,
		Premium:        249,
		Commission:     1,
		Covered:        true,
		Notes:          "earnings next week",
	}

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: AAPL STO Call (01HQ3K5Z)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":ID: 01HQ3K5ZJ8ABCDEF")
	assert.Contains(t, result, ":START_DATE: [2024-01-02 Tue]")
	assert.Contains(t, result, ":EXPIRATION: [2024-01-19 Fri]")
	assert.Contains(t, result, ":STRIKE: 185.00")
	assert.Contains(t, result, ":CONTRACTS: -1")
	assert.Contains(t, result, ":PREMIUM: 249.00")
	assert.Contains(t, result, ":COVERED: t")
	assert.NotContains(t, result, ":SECURED:")
	assert.NotContains(t, result, ":CLOSING_PRICE:")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Thesis\n- earnings next week")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgStockAndCash(t *testing.T) {
	t.Parallel()

	stock := FormatTradeOrg(ledger.Trade{ID: "s1", Symbol: "MSFT", Side: ledger.BTO, Type: ledger.Stock, Contracts: 100, Price: 350})
	assert.Contains(t, stock, "** Trade: MSFT BTO (s1)")
	assert.NotContains(t, stock, ":STRIKE:")

	cash := FormatTradeOrg(ledger.Trade{ID: "c1", Symbol: ledger.CashSymbol, Side: ledger.BTO, Type: ledger.Stock, Contracts: 500, Premium: 500})
	assert.Contains(t, cash, "** Trade: CASH (c1)")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	trades := []ledger.Trade{
		{ID: "trade-001", Symbol: "AAPL", Type: ledger.Stock, Side: ledger.BTO},
		{ID: "trade-002", Symbol: "TSLA", Type: ledger.Put, Side: ledger.STO, ClosingPrice: 0.5},
	}

	result := FormatTradesOrg(trades)

	assert.Contains(t, result, "AAPL")
	assert.Contains(t, result, "TSLA")
	assert.Contains(t, result, ":CLOSING_PRICE: 0.50")
	assert.Equal(t, 2, strings.Count(result, ":PROPERTIES:"))
	assert.Contains(t, result, "- \n\n\n** Trade: TSLA")
	assert.Empty(t, FormatTradesOrg(nil))
}
