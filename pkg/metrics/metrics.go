package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Access-control metrics
	Operations    *prometheus.CounterVec
	AuthzDenials  *prometheus.CounterVec
	LoginAttempts *prometheus.CounterVec
	ActiveSessions prometheus.Gauge

	// Storage metrics
	StorageLatency *prometheus.HistogramVec

	// Blob cache metrics
	BlobCacheBytes    prometheus.Gauge
	BlobCacheRejected prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Repository operations by resource, action and outcome",
		}, []string{"resource", "action", "outcome"}),
		AuthzDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "authz_denials_total",
			Help:      "Authorization denials by role and resource",
		}, []string{"role", "resource", "action"}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Sessions currently held in the session store",
		}),
		StorageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_operation_duration_seconds",
			Help:      "Time spent in storage collection calls",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"collection", "operation"}),
		BlobCacheBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "blob_cache_bytes",
			Help:      "Bytes currently held in the local download cache",
		}),
		BlobCacheRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "blob_cache_rejected_total",
			Help:      "Downloads refused because the cache quota would be exceeded",
		}),
	}
}
