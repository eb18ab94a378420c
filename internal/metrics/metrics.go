// Package metrics provides Prometheus metrics for cpsync.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpsync_probes_total",
			Help: "Device health checks by outcome",
		},
		[]string{"outcome", "trigger"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpsync_uploads_total",
			Help: "Uploads attempted by result",
		},
		[]string{"result"},
	)

	uploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cpsync_upload_bytes_total",
			Help: "Bytes of files accepted by the device",
		},
	)

	syncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cpsync_sync_pass_duration_seconds",
			Help:    "Wall time of a full sync pass",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	syncRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cpsync_sync_rejected_total",
			Help: "Sync requests ignored because a pass was already running",
		},
	)

	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cpsync_queue_length",
			Help: "Files waiting in the upload queue",
		},
	)

	shellCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpsync_shell_cache_requests_total",
			Help: "Offline shell requests by cache result",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProbe records a health check outcome. trigger is "user" or "poller".
func RecordProbe(outcome, trigger string) {
	probesTotal.WithLabelValues(outcome, trigger).Inc()
}

// RecordUpload records an upload result.
func RecordUpload(success bool, bytes int64) {
	if success {
		uploadsTotal.WithLabelValues("success").Inc()
		uploadBytes.Add(float64(bytes))
		return
	}
	uploadsTotal.WithLabelValues("failure").Inc()
}

// RecordSyncPass records the duration of a completed pass.
func RecordSyncPass(d time.Duration) {
	syncPassDuration.Observe(d.Seconds())
}

// RecordSyncRejected counts a sync request dropped by the re-entrancy guard.
func RecordSyncRejected() {
	syncRejectedTotal.Inc()
}

// SetQueueLength updates the queue length gauge.
func SetQueueLength(n int) {
	queueLength.Set(float64(n))
}

// RecordShellCache records a cache hit, miss, store or bypass.
func RecordShellCache(result string) {
	shellCacheRequests.WithLabelValues(result).Inc()
}
