package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "defender_events_processed_total",
		Help: "Events routed through the protection engine, by kind.",
	}, []string{"kind"})

	VerdictsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "defender_verdicts_total",
		Help: "Verdicts issued, by detector and action.",
	}, []string{"detector", "action"})

	VerdictsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "defender_verdicts_suppressed_total",
		Help: "Structural changes dropped because no actor could be resolved.",
	})

	ResponsesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "defender_responses_total",
		Help: "Remedial actions executed, by action and outcome.",
	}, []string{"action", "outcome"})

	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "defender_detection_duration_us",
		Help:    "Per-event detector evaluation latency in microseconds.",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 25000},
	})

	LockdownsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "defender_lockdowns_active",
		Help: "Guilds currently in lockdown.",
	})

	SnapshotsTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "defender_snapshots_total",
		Help: "Backup snapshots captured.",
	})

	RestoresAttempted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "defender_restores_total",
		Help: "Restore attempts, by outcome.",
	}, []string{"outcome"})
)
