package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLight("adult", ResultAccepted, 5*time.Millisecond)
	m.ObserveLight("adult", ResultRateLimited, time.Millisecond)
	m.ObserveLight("adult", ResultAccepted, time.Millisecond)
	m.ObserveCountCache(true)
	m.ObserveCountCache(false)
	m.ObserveCountCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lightings.WithLabelValues("adult", ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lightings.WithLabelValues("adult", ResultRateLimited)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.countCache.WithLabelValues("miss")))

	n, err := testutil.GatherAndCount(reg, "candle_light_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
