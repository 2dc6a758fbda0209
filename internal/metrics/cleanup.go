package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cleanup subsystem metrics
var (
	// DeletionsTotal counts per-folder delete outcomes by status
	DeletionsTotal *prometheus.CounterVec

	// BytesFreedTotal tracks total bytes freed across all deletions
	BytesFreedTotal prometheus.Counter

	// BatchDuration tracks duration of delete batches
	BatchDuration prometheus.Histogram

	// WorkersActive tracks number of busy workers per pool
	WorkersActive *prometheus.GaugeVec
)

// initCleanupMetrics initializes all cleanup subsystem metrics
func initCleanupMetrics() {
	DeletionsTotal = NewCounterVec(
		"nmsweep_deletions_total",
		"Total folder deletions by status (deleted, dry_run, stale, invalid, access, error).",
		[]string{"status"},
	)

	BytesFreedTotal = NewBytesCounter(
		"nmsweep_bytes_freed_total",
		"Total bytes freed by deleting node_modules folders.",
	)

	BatchDuration = NewDurationHistogram(
		"nmsweep_delete_batch_duration_seconds",
		"Duration of delete batches in seconds.",
	)

	WorkersActive = NewGaugeVec(
		"nmsweep_workers_active",
		"Number of workers currently running a task.",
		[]string{"pool"},
	)
}

// registerCleanupMetrics registers all cleanup metrics with Prometheus
func registerCleanupMetrics() {
	prometheus.MustRegister(DeletionsTotal)
	prometheus.MustRegister(BytesFreedTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(WorkersActive)
}

// RecordDeletion records one folder outcome
func RecordDeletion(status string, freed int64) {
	if DeletionsTotal == nil {
		return
	}
	DeletionsTotal.WithLabelValues(status).Inc()
	if freed > 0 {
		BytesFreedTotal.Add(float64(freed))
	}
}

// RecordBatchDuration records the duration of a delete batch
func RecordBatchDuration(elapsed time.Duration) {
	if BatchDuration == nil {
		return
	}
	BatchDuration.Observe(elapsed.Seconds())
}

// WorkerStarted marks a worker of pool as busy
func WorkerStarted(pool string) {
	if WorkersActive == nil {
		return
	}
	WorkersActive.WithLabelValues(pool).Inc()
}

// WorkerFinished marks a worker of pool as idle again
func WorkerFinished(pool string) {
	if WorkersActive == nil {
		return
	}
	WorkersActive.WithLabelValues(pool).Dec()
}
