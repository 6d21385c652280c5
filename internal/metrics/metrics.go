// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "cashflow"

// Metrics groups the collectors of one server instance.
type Metrics struct {
	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	Plans         prometheus.Counter
	Transfers     prometheus.Counter
	AmountSettled prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		Plans: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_plans_total",
			Help:      "Settlement plans computed.",
		}),
		Transfers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_transfers_total",
			Help:      "Transfers emitted across all settlement plans.",
		}),
		AmountSettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_amount_total",
			Help:      "Sum of amounts settled across all plans.",
		}),
	}
}

// ObservePlan records one computed settlement plan.
func (m *Metrics) ObservePlan(transfers int, total decimal.Decimal) {
	m.Plans.Inc()
	m.Transfers.Add(float64(transfers))
	m.AmountSettled.Add(total.InexactFloat64())
}
