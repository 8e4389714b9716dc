package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payments_registered_total",
			Help: "Total number of incoming payments registered",
		},
		[]string{"source_chain", "path"}, // path: bridged or direct
	)

	PaymentsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payments_duplicate_total",
		Help: "Total number of registrations short-circuited by the source tx hash idempotency check",
	})

	BridgeBurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_bridge_burns_total",
			Help: "Total number of CCTP burn attempts",
		},
		[]string{"chain", "result"}, // result: success or failure
	)

	AttestationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_attestation_polls_total",
			Help: "Total number of attestation polls",
		},
		[]string{"result"}, // result: ready, not_ready or error
	)

	BridgeMints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_bridge_mints_total",
			Help: "Total number of CCTP mint attempts",
		},
		[]string{"chain", "result"},
	)

	PayoutsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payouts_dispatched_total",
			Help: "Total number of payout send attempts",
		},
		[]string{"chain", "result"}, // result: sent or failed
	)

	BridgeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_bridge_operation_duration_seconds",
			Help:    "Duration of bridge client operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // burn, attestation, mint
	)

	DepositEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_deposit_events_received_total",
			Help: "Total number of deposit events received from the chain watcher",
		},
		[]string{"result"}, // result: processed, invalid or failed
	)
)
