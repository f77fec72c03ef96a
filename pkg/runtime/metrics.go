package runtime

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the executor's Prometheus collectors.
type Metrics struct {
	transactions  *prometheus.CounterVec
	programErrors *prometheus.CounterVec
	computeUnits  prometheus.Histogram
	slot          prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bulldozer",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Transactions handled by the executor by outcome (success, failed, rejected)",
			},
			[]string{"status"},
		),
		programErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bulldozer",
				Subsystem: "runtime",
				Name:      "program_errors_total",
				Help:      "Failed transactions by program error code",
			},
			[]string{"code"},
		),
		computeUnits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "bulldozer",
				Subsystem: "runtime",
				Name:      "compute_units",
				Help:      "Compute units consumed per executed transaction",
				Buckets:   prometheus.ExponentialBuckets(1_000, 2, 10), // 1k to ~512k
			},
		),
		slot: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bulldozer",
				Subsystem: "runtime",
				Name:      "slot",
				Help:      "Latest journaled slot",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.transactions, m.programErrors, m.computeUnits, m.slot)
	}
	return m
}

func (m *Metrics) observe(result *Result) {
	if m == nil {
		return
	}
	m.slot.Set(float64(result.Slot))
	m.computeUnits.Observe(float64(result.ComputeUnitsConsumed))
	if result.Err == nil {
		m.transactions.WithLabelValues("success").Inc()
		return
	}
	m.transactions.WithLabelValues("failed").Inc()
	m.programErrors.WithLabelValues(strconv.FormatUint(uint64(result.Err.Code), 10)).Inc()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues("rejected").Inc()
}
