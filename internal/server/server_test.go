package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/internal/id"
	"github.com/rustyeddy/optfolio/journal"
	"github.com/rustyeddy/optfolio/ledger"
	"github.com/rustyeddy/optfolio/pricing"
	"github.com/rustyeddy/optfolio/trading"
)

var today = time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

const securedPutJSON = `{"symbol":"AAPL","type":"Put","side":"STO","expiration_date":"2024-01-19T00:00:00Z",
	"strike":50,"price":1,"quantity":1,"commission":1,"secured":true}`

func engineConfig(j journal.Journal) trading.Config {
	return trading.Config{
		Journal: j,
		Oracle:  pricing.NewStatic(map[string]float64{"AAPL": 182.5}),
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return today },
	}
}

func newTestServer(t *testing.T, cash float64) *Server {
	t.Helper()
	acct, err := account.New(nil, account.Balances{Cash: cash})
	require.NoError(t, err)
	return New(Config{
		Log:     zerolog.Nop(),
		Engine:  trading.NewEngine(acct, engineConfig(nil)),
		DevMode: true,
		Now:     func() time.Time { return today },
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, 0), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestProposeConfirmAndClose(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 10000)

	rec := do(t, s, http.MethodPost, "/api/trades/propose", securedPutJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum trading.TradeSummary
	decodeBody(t, rec, &sum)
	assert.InDelta(t, 99, sum.CashImpact, 1e-9)
	assert.InDelta(t, 5000, sum.CollateralImpact, 1e-9)

	// proposing writes nothing
	var b account.Balances
	decodeBody(t, do(t, s, http.MethodGet, "/api/balances", ""), &b)
	assert.Equal(t, 10000.0, b.Cash)

	rec = do(t, s, http.MethodPost, "/api/trades", `{"form":`+securedPutJSON+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var trades []ledger.Trade
	decodeBody(t, rec, &trades)
	require.Len(t, trades, 1)
	tradeID := trades[0].ID

	decodeBody(t, do(t, s, http.MethodGet, "/api/balances", ""), &b)
	assert.InDelta(t, 5099, b.Cash, 1e-9)
	assert.InDelta(t, 5000, b.LockedCollateral, 1e-9)

	rec = do(t, s, http.MethodPost, "/api/trades/"+tradeID+"/close", `{"closing_price":0.5,"commission":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var act trading.ActionSummary
	decodeBody(t, rec, &act)
	assert.InDelta(t, -51, act.CashImpact, 1e-9)

	decodeBody(t, do(t, s, http.MethodGet, "/api/balances", ""), &b)
	assert.InDelta(t, 10048, b.Cash, 1e-9)
	assert.Zero(t, b.LockedCollateral)

	var got ledger.Trade
	decodeBody(t, do(t, s, http.MethodGet, "/api/trades/"+tradeID, ""), &got)
	assert.Equal(t, ledger.Closed, got.Status)
}

func TestErrorStatuses(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 1000)
	missing := id.New()
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown trade", http.MethodGet, "/api/trades/" + missing, "", http.StatusNotFound},
		{"close unknown trade", http.MethodPost, "/api/trades/" + missing + "/close", `{"closing_price":1}`, http.StatusNotFound},
		{"delete unknown trade", http.MethodDelete, "/api/trades/" + missing, "", http.StatusNotFound},
		{"malformed trade id", http.MethodGet, "/api/trades/nope", "", http.StatusBadRequest},
		{"malformed id on close", http.MethodPost, "/api/trades/nope/close", `{"closing_price":1}`, http.StatusBadRequest},
		{"not enough cash to secure", http.MethodPost, "/api/trades", `{"form":` + securedPutJSON + `}`, http.StatusConflict},
		{"invalid form", http.MethodPost, "/api/trades/propose", `{"symbol":"","type":"Put","side":"STO"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/trades/propose", `{"symbol":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/cash", `{"action":"deposit","amount":"5","memo":"x"}`, http.StatusBadRequest},
		{"unknown timeframe", http.MethodGet, "/api/premium?tf=2W", "", http.StatusBadRequest},
		{"bad days", http.MethodGet, "/api/expiring?days=-1", "", http.StatusBadRequest},
		{"bad cash action", http.MethodPost, "/api/cash", `{"action":"borrow","amount":"5"}`, http.StatusBadRequest},
		{"negative portfolio value", http.MethodPut, "/api/portfolio-value", `{"value":-1}`, http.StatusBadRequest},
		{"history without journal", http.MethodGet, "/api/history", "", http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var resp map[string]string
			decodeBody(t, rec, &resp)
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestCashAndPortfolioValue(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 10000)

	rec := do(t, s, http.MethodPost, "/api/cash", `{"action":"deposit","amount":"$1,000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Trade    ledger.Trade     `json:"trade"`
		Balances account.Balances `json:"balances"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, ledger.CashSymbol, resp.Trade.Symbol)
	assert.Equal(t, 11000.0, resp.Balances.Cash)

	rec = do(t, s, http.MethodPost, "/api/cash", `{"action":"withdraw","amount":"500"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, 10500.0, resp.Balances.Cash)

	rec = do(t, s, http.MethodPost, "/api/cash", `{"action":"deposit","amount":"lots"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Trade.ID)
	assert.Equal(t, 10500.0, resp.Balances.Cash)

	rec = do(t, s, http.MethodPut, "/api/portfolio-value", `{"value":125000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var b account.Balances
	decodeBody(t, rec, &b)
	assert.Equal(t, 125000.0, b.PortfolioValue)
}

func TestPositionsPremiumAndExpiring(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 10000)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/trades", `{"form":`+securedPutJSON+`}`).Code)

	var ps positionsResponse
	decodeBody(t, do(t, s, http.MethodGet, "/api/positions", ""), &ps)
	require.Len(t, ps.Positions, 1)
	assert.Equal(t, "AAPL", ps.Positions[0].Symbol)
	assert.Equal(t, 182.5, ps.Positions[0].CurrentPrice)
	assert.InDelta(t, 99, ps.TotalPL, 1e-9)

	var prem struct {
		Timeframe string  `json:"timeframe"`
		Premium   float64 `json:"premium"`
	}
	decodeBody(t, do(t, s, http.MethodGet, "/api/premium?tf=1M", ""), &prem)
	assert.Equal(t, "1M", prem.Timeframe)
	assert.InDelta(t, 99, prem.Premium, 1e-9)

	var expiring []ledger.Trade
	decodeBody(t, do(t, s, http.MethodGet, "/api/expiring?days=30", ""), &expiring)
	assert.Len(t, expiring, 1)
	decodeBody(t, do(t, s, http.MethodGet, "/api/expiring?days=2", ""), &expiring)
	assert.Empty(t, expiring)

	var all []ledger.Trade
	decodeBody(t, do(t, s, http.MethodGet, "/api/trades?tf=All", ""), &all)
	assert.Len(t, all, 1)
}

func TestRemoveAndEdit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 10000)
	rec := do(t, s, http.MethodPost, "/api/trades", `{"form":`+securedPutJSON+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added []ledger.Trade
	decodeBody(t, rec, &added)
	require.Len(t, added, 1)
	path := "/api/trades/" + added[0].ID

	rec = do(t, s, http.MethodPost, path+"/edit/propose", `{"side":"STO","type":"Put","strike":60,"price":1,"commission":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var es trading.EditSummary
	decodeBody(t, rec, &es)
	assert.InDelta(t, 1000, es.CollateralDifference, 1e-9)

	rec = do(t, s, http.MethodPut, path, `{"side":"STO","type":"Put","strike":60,"price":1,"commission":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var b account.Balances
	decodeBody(t, do(t, s, http.MethodGet, "/api/balances", ""), &b)
	assert.InDelta(t, 6000, b.LockedCollateral, 1e-9)

	rec = do(t, s, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, do(t, s, http.MethodGet, "/api/balances", ""), &b)
	assert.InDelta(t, 10000, b.Cash, 1e-9)
	assert.Zero(t, b.LockedCollateral)
}

func TestHistoryFromSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "book.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	e, err := trading.Open(ctx, engineConfig(j), account.Balances{Cash: 10000})
	require.NoError(t, err)
	_, err = e.CashTransaction(ctx, trading.Deposit, 250)
	require.NoError(t, err)

	s := New(Config{Log: zerolog.Nop(), Engine: e, History: j, DevMode: true})
	rec := do(t, s, http.MethodGet, "/api/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var recs []journal.TxnRecord
	decodeBody(t, rec, &recs)
	require.Len(t, recs, 2)
	assert.Equal(t, "cash-deposit", recs[0].Op)
	assert.Equal(t, "init", recs[1].Op)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, 0)
	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optfolio_")
}
