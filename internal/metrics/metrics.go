// Package metrics exposes this engine's internal activity as Prometheus
// collectors: job dispatcher throughput, indexer run counters, and sync
// engine peer/replication state. Grounded on the pattern observed across
// the example pack (flat package-level promauto declarations grouped by
// subsystem, paired with small Record*/Set* helpers that do the label
// plumbing) rather than a metrics-builder abstraction of its own.
//
// Callers never touch a *prometheus.CounterVec directly — they call the
// helper for their subsystem, the same way internal/action callers never
// build an eventbus.Event by hand for a call they could make through a
// typed function.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job dispatcher metrics.
	JobsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdcore_jobs_started_total",
			Help: "Total number of jobs submitted to the job dispatcher, by kind.",
		},
		[]string{"kind"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdcore_jobs_completed_total",
			Help: "Total number of jobs that finished running, by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: success | failure
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdcore_job_duration_seconds",
			Help:    "Wall-clock duration of a completed job, by kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	JobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdcore_job_queue_depth",
			Help: "Number of jobs currently queued or running in the dispatcher.",
		},
	)

	JobActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdcore_job_active_workers",
			Help: "Number of dispatcher worker goroutines currently executing a task.",
		},
	)

	// Indexer metrics.
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdcore_indexer_runs_total",
			Help: "Total number of indexing runs completed, by outcome.",
		},
		[]string{"outcome"}, // outcome: success | failure
	)

	IndexerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdcore_indexer_entries_total",
			Help: "Total filesystem entries observed by the indexer, by kind.",
		},
		[]string{"kind"}, // kind: file | dir | symlink | skipped | error
	)

	IndexerBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdcore_indexer_bytes_total",
			Help: "Total bytes of file content observed across all indexing runs.",
		},
	)

	IndexerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdcore_indexer_run_duration_seconds",
			Help:    "Wall-clock duration of one indexing run over a location.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync engine metrics.
	SyncPeersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdcore_sync_peers_connected",
			Help: "Number of remote devices currently connected to the sync engine.",
		},
	)

	SyncPeerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdcore_sync_peer_state",
			Help: "1 for the peer's current replication state, 0 otherwise; read alongside sdcore_sync_peer_latency_ms.",
		},
		[]string{"peer", "state"},
	)

	SyncPeerLatencyMS = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdcore_sync_peer_latency_ms",
			Help: "Last observed heartbeat round-trip latency to a peer, in milliseconds.",
		},
		[]string{"peer"},
	)

	SyncLogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdcore_sync_log_entries_total",
			Help: "Total log entries processed by the reconciler, by model and outcome.",
		},
		[]string{"model", "outcome"}, // outcome: applied | skipped
	)

	SyncBackfillRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdcore_sync_backfill_rows_total",
			Help: "Total rows transferred during state backfill, by model.",
		},
		[]string{"model"},
	)
)

// RecordJobStarted increments the started counter for a job kind.
func RecordJobStarted(kind string) {
	JobsStartedTotal.WithLabelValues(kind).Inc()
}

// RecordJobCompleted increments the completed counter and observes the
// job's total duration, labeled by kind and success/failure outcome.
func RecordJobCompleted(kind string, success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}

	JobsCompletedTotal.WithLabelValues(kind, outcome).Inc()
	JobDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetJobQueueDepth reports the dispatcher's current queued+running job
// count.
func SetJobQueueDepth(depth int) {
	JobQueueDepth.Set(float64(depth))
}

// SetJobActiveWorkers reports how many dispatcher workers are currently
// executing a task.
func SetJobActiveWorkers(n int) {
	JobActiveWorkers.Set(float64(n))
}

// RecordIndexerRun records one completed indexing run's outcome and
// per-kind entry counts, bytes, and duration in a single call, since an
// indexing run's stats (internal/indexer.Stats) are only available once
// the run finishes.
func RecordIndexerRun(success bool, files, dirs, symlinks, skipped, errs int, bytes int64, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}

	IndexerRunsTotal.WithLabelValues(outcome).Inc()
	IndexerEntriesTotal.WithLabelValues("file").Add(float64(files))
	IndexerEntriesTotal.WithLabelValues("dir").Add(float64(dirs))
	IndexerEntriesTotal.WithLabelValues("symlink").Add(float64(symlinks))
	IndexerEntriesTotal.WithLabelValues("skipped").Add(float64(skipped))
	IndexerEntriesTotal.WithLabelValues("error").Add(float64(errs))
	IndexerBytesTotal.Add(float64(bytes))
	IndexerRunDuration.Observe(duration.Seconds())
}

// SetSyncPeersConnected reports the sync engine's current connected peer
// count.
func SetSyncPeersConnected(n int) {
	SyncPeersConnected.Set(float64(n))
}

// RecordPeerStateChange marks peerID as currently in state, clearing
// every other known state's gauge for that peer so only one state reads
// 1 at a time. states lists every DeviceState the caller's state machine
// can produce, since this package has no dependency on internal/
// syncengine to enumerate them itself.
func RecordPeerStateChange(peer, state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1.0
		}

		SyncPeerState.WithLabelValues(peer, s).Set(v)
	}
}

// SetPeerLatency reports a peer's last observed heartbeat round-trip
// time.
func SetPeerLatency(peer string, ms int64) {
	SyncPeerLatencyMS.WithLabelValues(peer).Set(float64(ms))
}

// RecordLogEntryApplied increments the applied counter for a log entry's
// model.
func RecordLogEntryApplied(model string) {
	SyncLogEntriesTotal.WithLabelValues(model, "applied").Inc()
}

// RecordLogEntrySkipped increments the skipped counter for a log entry's
// model — used when the reconciler can't apply an entry (e.g. its parent
// record hasn't arrived yet).
func RecordLogEntrySkipped(model string) {
	SyncLogEntriesTotal.WithLabelValues(model, "skipped").Inc()
}

// RecordBackfillRows adds n transferred rows to a model's backfill
// counter.
func RecordBackfillRows(model string, n int) {
	SyncBackfillRowsTotal.WithLabelValues(model).Add(float64(n))
}
