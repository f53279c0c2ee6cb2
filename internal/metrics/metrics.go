// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultAccepted    = "accepted"
	ResultRateLimited = "rate_limited"
	ResultNotFound    = "not_found"
	ResultInvalid     = "invalid"
	ResultError       = "error"
)

type Metrics struct {
	lightings     *prometheus.CounterVec
	lightDuration prometheus.Histogram
	countCache    *prometheus.CounterVec
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		lightings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "candle_lightings_total",
			Help: "Light attempts by grave type and outcome",
		}, []string{"grave_type", "result"}),
		lightDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "candle_light_duration_seconds",
			Help:    "Time spent handling a light attempt, lock wait included",
			Buckets: prometheus.DefBuckets,
		}),
		countCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "candle_count_cache_total",
			Help: "Candle count cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveLight(graveType, result string, elapsed time.Duration) {
	m.lightings.WithLabelValues(graveType, result).Inc()
	m.lightDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCountCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.countCache.WithLabelValues(result).Inc()
}
