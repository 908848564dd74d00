package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sale engine. All methods are
// nil-safe so services can run without a registry in tests.
type Metrics struct {
	// Purchase outcomes by status ("accepted", "rejected")
	PurchaseOutcome *prometheus.CounterVec

	// End-to-end purchase latency including lock creation
	PurchaseLatency prometheus.Histogram

	// Lock records created by origin ("admin", "bonus", "vesting")
	LocksCreated *prometheus.CounterVec

	// Lock records released to their owners
	LocksReleased prometheus.Counter

	// Treasury withdrawals by kind ("token", "ether")
	Withdrawals *prometheus.CounterVec
}

// New creates a Metrics instance with all sale engine metrics registered.
func New() *Metrics {
	return &Metrics{
		PurchaseOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "salegate_purchases_total",
			Help: "Total purchase attempts by outcome",
		}, []string{"status"}),

		PurchaseLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "salegate_purchase_duration_seconds",
			Help:    "Duration of full purchase processing including lock creation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		LocksCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "salegate_locks_created_total",
			Help: "Total lock records created by origin",
		}, []string{"origin"}),

		LocksReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_locks_released_total",
			Help: "Total lock records released to their owners",
		}),

		Withdrawals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "salegate_withdrawals_total",
			Help: "Total treasury withdrawals by kind",
		}, []string{"kind"}),
	}
}

// IncrementPurchase records a purchase attempt outcome.
func (m *Metrics) IncrementPurchase(status string) {
	if m != nil {
		m.PurchaseOutcome.WithLabelValues(status).Inc()
	}
}

// ObservePurchaseLatency records the duration of a purchase call.
func (m *Metrics) ObservePurchaseLatency(d time.Duration) {
	if m != nil {
		m.PurchaseLatency.Observe(d.Seconds())
	}
}

// IncrementLocksCreated records newly created lock records.
func (m *Metrics) IncrementLocksCreated(origin string, n int) {
	if m != nil {
		m.LocksCreated.WithLabelValues(origin).Add(float64(n))
	}
}

// IncrementLocksReleased records lock records released to their owners.
func (m *Metrics) IncrementLocksReleased(n int) {
	if m != nil {
		m.LocksReleased.Add(float64(n))
	}
}

// IncrementWithdrawal records a treasury withdrawal.
func (m *Metrics) IncrementWithdrawal(kind string) {
	if m != nil {
		m.Withdrawals.WithLabelValues(kind).Inc()
	}
}
