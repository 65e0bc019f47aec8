/*
metrics.go - Prometheus counters for ledger activity

PURPOSE:
  Operational counters exposed at /metrics. These track coin movement
  volume and background work; they carry no per-user data.

SEE ALSO:
  - server.go: Mounts the /metrics endpoint
  - scheduler.go: Allocation run counters
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	coinTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coin_engine",
		Name:      "transactions_total",
		Help:      "Ledger transactions appended, by direction and category.",
	}, []string{"type", "category"})

	coinsMovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coin_engine",
		Name:      "coins_moved_total",
		Help:      "Coins moved through the ledger, by direction.",
	}, []string{"type"})

	allocationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coin_engine",
		Name:      "allocation_runs_total",
		Help:      "Monthly allocation scheduler passes completed.",
	})

	allocationsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coin_engine",
		Name:      "allocations_granted_total",
		Help:      "Monthly allocations granted by the scheduler.",
	})

	coachChats = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coin_engine",
		Name:      "coach_chats_total",
		Help:      "Coach chat completions, by outcome.",
	}, []string{"outcome"})
)

// observeTransactions records appended ledger transactions.
func observeTransactions(txs ...TransactionDTO) {
	for _, tx := range txs {
		coinTransactions.WithLabelValues(tx.Type, tx.Category).Inc()
		coinsMovedTotal.WithLabelValues(tx.Type).Add(float64(tx.Amount))
	}
}
