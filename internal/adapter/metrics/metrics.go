package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScanMetrics holds all Prometheus metrics for the scanning pipeline.
type ScanMetrics struct {
	LinesProcessed prometheus.Counter
	EventsFound    *prometheus.CounterVec
	EventsSaved    prometheus.Counter
	SaveFailures   prometheus.Counter
	VMFailures     prometheus.Counter
	ScanDuration   prometheus.Histogram
}

// NewScanMetrics initializes and registers the Prometheus metrics.
func NewScanMetrics() *ScanMetrics {
	return &ScanMetrics{
		LinesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "vmwatch",
			Subsystem: "scan",
			Name:      "lines_processed_total",
			Help:      "Total number of log lines fed through the detector.",
		}),
		EventsFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vmwatch",
			Subsystem: "scan",
			Name:      "events_found_total",
			Help:      "Total number of security events detected, by rule and severity.",
		}, []string{"rule", "severity"}),
		EventsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "vmwatch",
			Subsystem: "scan",
			Name:      "events_saved_total",
			Help:      "Total number of security events persisted.",
		}),
		SaveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "vmwatch",
			Subsystem: "scan",
			Name:      "save_failures_total",
			Help:      "Total number of events that failed to persist.",
		}),
		VMFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "vmwatch",
			Subsystem: "scan",
			Name:      "vm_failures_total",
			Help:      "Total number of VM/source collection failures.",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vmwatch",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of full scan runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}
