// Package metrics exposes the prometheus counters/histograms every fs,
// access and overlay operation reports through, grounded on the
// client_golang usage the teacher's go.mod already commits to.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	opLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentfs",
		Subsystem: "fs",
		Name:      "op_duration_seconds",
		Help:      "Latency of inode filesystem operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	opTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfs",
		Subsystem: "fs",
		Name:      "op_total",
		Help:      "Count of inode filesystem operations.",
	}, []string{"op"})

	AccessDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfs",
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Access policy decisions by operation, source and outcome.",
	}, []string{"operation", "source", "allowed"})

	OverlayImportFiles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "agentfs",
		Subsystem: "overlay",
		Name:      "import_files_total",
		Help:      "Files imported by the overlay initializer.",
	})

	OverlayImportBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "agentfs",
		Subsystem: "overlay",
		Name:      "import_bytes_total",
		Help:      "Bytes imported by the overlay initializer.",
	})

	OverlayDiffChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfs",
		Subsystem: "overlay",
		Name:      "diff_changes_total",
		Help:      "Changes detected by the overlay diff engine, by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(opLatency, opTotal, AccessDecisions, OverlayImportFiles, OverlayImportBytes, OverlayDiffChanges)
}

// ObserveOp records one operation's latency and count; call it with
// `defer metrics.ObserveOp("writeFile")()` at the top of a method.
func ObserveOp(op string) func() {
	start := time.Now()
	opTotal.WithLabelValues(op).Inc()
	return func() {
		opLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
