// Package metrics exposes Prometheus instrumentation for rivulet streams.
//
// Labels are stream kinds ("sequence", "batch", "value", ...) as set by the
// stream constructors. Stream IDs and caller-chosen names are never used, so
// cardinality stays bounded by the number of stream types.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	promNamespace = "rivulet"
)

// Termination outcomes.
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

var (
	durationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5} // 10 items

	notificationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "notifications_total",
		Help:      "Values delivered by stream hubs.",
	}, []string{"kind"})

	terminationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "terminations_total",
		Help:      "Terminal signals sent by stream hubs.",
	}, []string{"kind", "outcome"})

	handlerPanicsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "handler_panics_total",
		Help:      "Subscriber handler panics recovered by stream hubs.",
	}, []string{"kind"})

	subscribersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "subscribers",
		Help:      "Currently registered subscribers.",
	}, []string{"kind"})

	pullDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "pull_duration_seconds",
		Help:      "Latency of sequence pulls.",
		Buckets:   durationBuckets,
	}, []string{"kind"})
)

// TrackNotify counts one delivered value.
func TrackNotify(kind string) {
	notificationsCounter.WithLabelValues(kind).Inc()
}

// TrackTermination counts one terminal signal.
func TrackTermination(kind string, failed bool) {
	outcome := OutcomeDone
	if failed {
		outcome = OutcomeFailed
	}
	terminationsCounter.WithLabelValues(kind, outcome).Inc()
}

// TrackPanic counts one recovered handler panic.
func TrackPanic(kind string) {
	handlerPanicsCounter.WithLabelValues(kind).Inc()
}

// TrackSubscribers adjusts the subscriber gauge by delta.
func TrackSubscribers(kind string, delta int) {
	subscribersGauge.WithLabelValues(kind).Add(float64(delta))
}

// TrackPull starts timing a sequence pull; call the returned func when the
// pull completes.
func TrackPull(kind string) func() {
	start := time.Now()
	return func() {
		pullDurationHistogram.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
