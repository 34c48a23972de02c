package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Device-side counters. Registered on the default registry and served by
// the agent's /metrics endpoint.

var (
	// Tag codec
	TagOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "tag",
		Name:      "operations_total",
		Help:      "Tag read/write attempts by outcome",
	}, []string{"op", "result"})

	TagPagesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "tag",
		Name:      "pages_written_total",
		Help:      "Tag pages written successfully",
	})

	// Offline queue
	QueuePending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "boxtrace",
		Subsystem: "queue",
		Name:      "pending_records",
		Help:      "Transfer records waiting in the offline queue",
	})

	QueueEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "queue",
		Name:      "enqueued_total",
		Help:      "Records handed to the offline queue",
	})

	QueueDrained = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "queue",
		Name:      "drained_total",
		Help:      "Queued records submitted and removed",
	})

	QueueDrainPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "queue",
		Name:      "drain_passes_total",
		Help:      "Drain passes by outcome (complete, halted)",
	}, []string{"result"})

	QueuePersistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "queue",
		Name:      "persist_errors_total",
		Help:      "Durable store failures by operation (load, save, clear)",
	}, []string{"op"})

	// Workflow
	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxtrace",
		Subsystem: "workflow",
		Name:      "transfers_total",
		Help:      "Completed transfers by outcome (submitted, offline, cancelled, scan_failed)",
	}, []string{"outcome"})

	SubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "boxtrace",
		Subsystem: "backend",
		Name:      "submit_duration_seconds",
		Help:      "Transaction submission round trip",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	})

	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "boxtrace",
		Subsystem: "backend",
		Name:      "breaker_state",
		Help:      "Submission circuit breaker state (0=closed, 1=open, 2=half-open)",
	})

	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "boxtrace",
		Subsystem: "connectivity",
		Name:      "connected",
		Help:      "1 when the backend is reachable",
	})
)
