// Package observability holds the Prometheus collectors exported on /metrics.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bitway"

var (
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})

	ledgerMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wallet",
		Name:      "ledger_mutations_total",
		Help:      "Balance rows appended, by mutation kind.",
	}, []string{"kind"})

	ledgerViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "wallet",
		Name:      "ledger_integrity_violations_total",
		Help:      "Reconciliation findings, by check.",
	}, []string{"check"})

	settlements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transactions",
		Name:      "settlements_total",
		Help:      "Admin status updates, by outcome.",
	}, []string{"outcome"})

	settledNaira = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transactions",
		Name:      "settled_naira_total",
		Help:      "Naira moved by successful settlements, by service kind.",
	}, []string{"kind"})

	pendingTransactions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transactions",
		Name:      "pending",
		Help:      "Transactions awaiting settlement at the last reconciliation run.",
	})

	idempotencyEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotency_events_total",
		Help:      "Idempotency middleware outcomes.",
	}, []string{"outcome"})

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "SMS and email dispatch outcomes.",
	}, []string{"channel", "result"})

	workerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_runs_total",
		Help:      "Scheduled job outcomes.",
	}, []string{"worker", "result"})
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Recording before Init is
// harmless; values simply are not exported.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpDuration,
			ledgerMutations,
			ledgerViolations,
			settlements,
			settledNaira,
			pendingTransactions,
			idempotencyEvents,
			notifications,
			workerRuns,
		)
	})
}

func ObserveHTTP(method, route string, status int, duration time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementLedgerMutation(kind string) { ledgerMutations.WithLabelValues(kind).Inc() }

func IncrementLedgerIntegrityViolation(check string) { ledgerViolations.WithLabelValues(check).Inc() }

func IncrementSettlement(outcome string) { settlements.WithLabelValues(outcome).Inc() }

// AddSettledVolume records a successful settlement of amountKobo.
func AddSettledVolume(kind string, amountKobo int64) {
	settledNaira.WithLabelValues(kind).Add(float64(amountKobo) / 100)
}

func SetPendingTransactions(count int64) { pendingTransactions.Set(float64(count)) }

func IncrementIdempotencyEvent(outcome string) { idempotencyEvents.WithLabelValues(outcome).Inc() }

func IncrementNotification(channel, result string) {
	notifications.WithLabelValues(channel, result).Inc()
}

func IncrementWorkerRun(worker, result string) { workerRuns.WithLabelValues(worker, result).Inc() }
