package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optfolio/account"
	"github.com/rustyeddy/optfolio/ledger"
)

func TestRecorderApplied(t *testing.T) {
	before := testutil.ToFloat64(OpsTotal.WithLabelValues("add"))
	puts := testutil.ToFloat64(TradesRecorded.WithLabelValues(string(ledger.Put)))

	var r Recorder
	r.Applied(account.Txn{
		Op:     "add",
		Append: []ledger.Trade{{ID: "p1", Type: ledger.Put}},
	}, account.Balances{Cash: 5099, LockedCollateral: 5000, PremiumCollected: 99, PortfolioValue: 12000})

	assert.Equal(t, before+1, testutil.ToFloat64(OpsTotal.WithLabelValues("add")))
	assert.Equal(t, puts+1, testutil.ToFloat64(TradesRecorded.WithLabelValues(string(ledger.Put))))
	assert.Equal(t, 5099.0, testutil.ToFloat64(Cash))
	assert.Equal(t, 5000.0, testutil.ToFloat64(LockedCollateral))
	assert.Equal(t, 99.0, testutil.ToFloat64(PremiumCollected))
	assert.Equal(t, 12000.0, testutil.ToFloat64(PortfolioValue))
}

func TestRecorderRejected(t *testing.T) {
	before := testutil.ToFloat64(RejectionsTotal.WithLabelValues("close"))
	Recorder{}.Rejected("close", errors.New("trade not found"))
	assert.Equal(t, before+1, testutil.ToFloat64(RejectionsTotal.WithLabelValues("close")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/trades/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	label := HTTPRequestsTotal.WithLabelValues("GET", "/api/trades/{id}", "404")
	before := testutil.ToFloat64(label)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(label))
}

func TestHandlerExposesCollectors(t *testing.T) {
	SetBalances(account.Balances{Cash: 1})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "optfolio_cash_dollars"))
}
