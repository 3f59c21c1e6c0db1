// Package metrics provides Prometheus instrumentation for the ledger engine
// and its HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/optfolio/account"
)

var (
	// OpsTotal counts committed ledger operations by op name.
	OpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optfolio_ops_total",
		Help: "Ledger operations committed",
	}, []string{"op"})

	// RejectionsTotal counts operations refused before commit.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optfolio_rejections_total",
		Help: "Ledger operations rejected",
	}, []string{"op"})

	// TradesRecorded counts trades appended to the ledger, by type.
	TradesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optfolio_trades_recorded_total",
		Help: "Trades appended to the ledger",
	}, []string{"type"})

	Cash = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optfolio_cash_dollars",
		Help: "Free cash balance",
	})

	LockedCollateral = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optfolio_locked_collateral_dollars",
		Help: "Cash reserved against cash-secured puts",
	})

	PremiumCollected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optfolio_premium_collected_dollars",
		Help: "Running total of net option premium",
	})

	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optfolio_portfolio_value_dollars",
		Help: "Externally supplied portfolio value",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optfolio_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optfolio_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Recorder feeds engine activity into the package collectors.
type Recorder struct{}

func (Recorder) Applied(tx account.Txn, b account.Balances) {
	OpsTotal.WithLabelValues(tx.Op).Inc()
	for _, t := range tx.Append {
		TradesRecorded.WithLabelValues(string(t.Type)).Inc()
	}
	SetBalances(b)
}

func (Recorder) Rejected(op string, _ error) {
	RejectionsTotal.WithLabelValues(op).Inc()
}

// SetBalances publishes b on the balance gauges.
func SetBalances(b account.Balances) {
	Cash.Set(b.Cash)
	LockedCollateral.Set(b.LockedCollateral)
	PremiumCollected.Set(b.PremiumCollected)
	PortfolioValue.Set(b.PortfolioValue)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
