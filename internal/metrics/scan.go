package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan subsystem metrics
var (
	// ScansTotal counts scans by outcome (ok, error, canceled)
	ScansTotal *prometheus.CounterVec

	// ScanDuration tracks how long scans take
	ScanDuration prometheus.Histogram

	// FoldersFoundTotal counts node_modules folders reported by scans
	FoldersFoundTotal prometheus.Counter

	// BytesFoundTotal counts bytes held by reported folders
	BytesFoundTotal prometheus.Counter

	// SkippedDirsTotal counts unreadable directories skipped during scans
	SkippedDirsTotal prometheus.Counter

	// LastScanBytes records the total size found by the most recent scan per root
	LastScanBytes *prometheus.GaugeVec
)

func initScanMetrics() {
	ScansTotal = NewCounterVec(
		"nmsweep_scans_total",
		"Total number of scans by status.",
		[]string{"status"},
	)

	ScanDuration = NewDurationHistogram(
		"nmsweep_scan_duration_seconds",
		"Duration of scans in seconds.",
	)

	FoldersFoundTotal = NewCounter(
		"nmsweep_folders_found_total",
		"Total node_modules folders reported by scans.",
	)

	BytesFoundTotal = NewBytesCounter(
		"nmsweep_bytes_found_total",
		"Total bytes held by node_modules folders reported by scans.",
	)

	SkippedDirsTotal = NewCounter(
		"nmsweep_skipped_dirs_total",
		"Total unreadable directories skipped while scanning.",
	)

	LastScanBytes = NewSizeGaugeVec(
		"nmsweep_last_scan_bytes",
		"Reclaimable bytes found by the last scan of a root.",
		[]string{"root"},
	)
}

func registerScanMetrics() {
	prometheus.MustRegister(ScansTotal)
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(FoldersFoundTotal)
	prometheus.MustRegister(BytesFoundTotal)
	prometheus.MustRegister(SkippedDirsTotal)
	prometheus.MustRegister(LastScanBytes)
}

// RecordScan records a finished scan. status is ok, error or canceled.
func RecordScan(root, status string, folders int, bytes, skipped int64, elapsed time.Duration) {
	if ScansTotal == nil {
		return
	}
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(elapsed.Seconds())
	if status != "ok" {
		return
	}
	FoldersFoundTotal.Add(float64(folders))
	BytesFoundTotal.Add(float64(bytes))
	SkippedDirsTotal.Add(float64(skipped))
	LastScanBytes.WithLabelValues(root).Set(float64(bytes))
}
