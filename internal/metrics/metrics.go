package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Ledger
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Accepted transfers by kind and resulting status",
		},
		[]string{"type", "status"}, // send|cashOut|cashIn, successful|pending
	)
	TransfersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_failed_total",
			Help: "Rejected transfers by reason",
		},
		[]string{"type", "reason"},
	)
	LedgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_conflict_retries_total",
			Help: "Transfer attempts retried after a persistence conflict",
		},
	)
	ReconcileMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_reconcile_mismatches_total",
			Help: "Accounts whose balance disagrees with their transaction history",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint'i için handler
var Handler = promhttp.Handler

// Init registers the collectors with the default registry; safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestLatency, TransfersTotal, TransfersFailed,
			LedgerRetries, ReconcileMismatches, WorkerQueueDepth)
	})
}
