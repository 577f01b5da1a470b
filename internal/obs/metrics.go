// Package obs exposes Prometheus metrics for the engine:
//   - hftish_level_changes_total          – one-cent level transitions seen
//   - hftish_decisions_total{side,result} – trade decisions (submitted|skipped|failed)
//   - hftish_orders_total{side}           – orders submitted to the broker
//   - hftish_order_events_total{kind}     – order-lifecycle events consumed
//   - hftish_total_shares                 – current filled position (gauge)
//   - hftish_pending_shares{side}         – shares awaiting broker confirmation (gauge)
//   - hftish_broker_errors_total{op}      – failed broker round-trips
//
// Registered in init() and served by the HTTP handler main starts at /metrics.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LevelChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hftish_level_changes_total",
		Help: "One-cent level transitions observed",
	})

	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hftish_decisions_total",
		Help: "Trade decisions by side and result",
	}, []string{"side", "result"})

	Orders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hftish_orders_total",
		Help: "Orders submitted",
	}, []string{"side"})

	OrderEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hftish_order_events_total",
		Help: "Order lifecycle events consumed",
	}, []string{"kind"})

	TotalShares = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hftish_total_shares",
		Help: "Current filled share position",
	})

	PendingShares = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hftish_pending_shares",
		Help: "Shares committed to unconfirmed orders",
	}, []string{"side"})

	BrokerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hftish_broker_errors_total",
		Help: "Failed broker operations",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		LevelChanges,
		Decisions,
		Orders,
		OrderEvents,
		TotalShares,
		PendingShares,
		BrokerErrors,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
