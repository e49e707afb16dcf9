package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackNotify(t *testing.T) {
	before := testutil.ToFloat64(notificationsCounter.WithLabelValues("metrics-test"))
	TrackNotify("metrics-test")
	TrackNotify("metrics-test")
	after := testutil.ToFloat64(notificationsCounter.WithLabelValues("metrics-test"))
	assert.Equal(t, 2.0, after-before)
}

func TestTrackTermination(t *testing.T) {
	doneBefore := testutil.ToFloat64(terminationsCounter.WithLabelValues("metrics-test", OutcomeDone))
	failedBefore := testutil.ToFloat64(terminationsCounter.WithLabelValues("metrics-test", OutcomeFailed))

	TrackTermination("metrics-test", false)
	TrackTermination("metrics-test", true)
	TrackTermination("metrics-test", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(terminationsCounter.WithLabelValues("metrics-test", OutcomeDone))-doneBefore)
	assert.Equal(t, 2.0, testutil.ToFloat64(terminationsCounter.WithLabelValues("metrics-test", OutcomeFailed))-failedBefore)
}

func TestTrackSubscribers(t *testing.T) {
	before := testutil.ToFloat64(subscribersGauge.WithLabelValues("metrics-test"))
	TrackSubscribers("metrics-test", 3)
	TrackSubscribers("metrics-test", -1)
	assert.Equal(t, 2.0, testutil.ToFloat64(subscribersGauge.WithLabelValues("metrics-test"))-before)
}

func TestTrackPanic(t *testing.T) {
	before := testutil.ToFloat64(handlerPanicsCounter.WithLabelValues("metrics-test"))
	TrackPanic("metrics-test")
	assert.Equal(t, 1.0, testutil.ToFloat64(handlerPanicsCounter.WithLabelValues("metrics-test"))-before)
}

func TestTrackPull(t *testing.T) {
	done := TrackPull("metrics-test")
	done()
	assert.Equal(t, 1, testutil.CollectAndCount(pullDurationHistogram))
}
