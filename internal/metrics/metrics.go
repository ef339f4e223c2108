package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	orderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbridge_order_transitions_total",
			Help: "Order status changes by target status",
		},
		[]string{"status"},
	)

	financeDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbridge_finance_decisions_total",
			Help: "Payment, refund and fine decisions",
		},
		[]string{"kind", "status"},
	)

	walletMovementsCents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbridge_wallet_movements_cents_total",
			Help: "Absolute cents moved through wallets by entry type",
		},
		[]string{"type"},
	)

	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbridge_job_runs_total",
			Help: "Scheduled job executions by outcome",
		},
		[]string{"job", "result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(orderTransitionsTotal)
	prometheus.MustRegister(financeDecisionsTotal)
	prometheus.MustRegister(walletMovementsCents)
	prometheus.MustRegister(jobRunsTotal)
}

// ObserveHTTP records one request against its route template.
func ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

func RecordOrderTransition(status string) {
	orderTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordFinanceDecision(kind, status string) {
	financeDecisionsTotal.WithLabelValues(kind, status).Inc()
}

func RecordWalletMovement(entryType string, amountCents int64) {
	if amountCents < 0 {
		amountCents = -amountCents
	}
	walletMovementsCents.WithLabelValues(entryType).Add(float64(amountCents))
}

func RecordJobRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	jobRunsTotal.WithLabelValues(job, result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
