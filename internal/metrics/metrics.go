// Package metrics exposes Prometheus counters for client operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpsTotal counts share-service operations by name and outcome.
	// Outcome is one of: ok, invalid, unauthenticated, rejected, network.
	OpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pantrylink",
			Name:      "share_ops_total",
			Help:      "Share-service operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// PollCyclesTotal counts inbox poll cycles by result.
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pantrylink",
			Name:      "inbox_poll_cycles_total",
			Help:      "Inbox refresh cycles by result (ok, error, discarded).",
		},
		[]string{"result"},
	)

	// RespondInFlightRejected counts respond calls refused by the
	// per-request in-flight guard.
	RespondInFlightRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pantrylink",
			Name:      "inbox_respond_in_flight_rejected_total",
			Help:      "Respond calls refused because one was already outstanding for the id.",
		},
	)
)
