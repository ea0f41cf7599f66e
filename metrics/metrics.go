// Package metrics holds the Prometheus collectors for the ledger.
//
// All collectors register with the default registry through promauto, so
// promhttp.Handler() exposes them without further wiring.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MutationsRecorded counts mutations written, by direction and origin kind.
var MutationsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "mutations_total",
	Help:      "Mutations appended to the wallet ledger.",
}, []string{"direction", "origin"})

// OperationDuration observes money-movement operations, by outcome.
var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ledger",
	Name:      "operation_duration_seconds",
	Help:      "Latency of money-movement operations.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation", "outcome"})

// OperationErrors counts failed operations by error kind.
var OperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "operation_errors_total",
	Help:      "Failed money-movement operations.",
}, []string{"operation", "kind"})

// WalletsAudited counts wallets replayed by the background audit, by result.
var WalletsAudited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "audit_wallets_total",
	Help:      "Wallets checked by the drift audit.",
}, []string{"result"})

// WalletsDrifted is the number of wallets found out of balance by the last
// audit pass.
var WalletsDrifted = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ledger",
	Name:      "audit_wallets_drifted",
	Help:      "Wallets whose stored balance disagrees with their mutation trail.",
})

// ObserveOperation records one finished operation. kind is the error
// classification ("" on success, "other" when unknown).
func ObserveOperation(operation string, start time.Time, kind string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
		if kind == "" {
			kind = "other"
		}
		OperationErrors.WithLabelValues(operation, kind).Inc()
	}
	OperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
