package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalyticsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finevent",
			Subsystem: "analytics",
			Name:      "latency_seconds",
			Help:      "Latency of analytics requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalyticsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finevent",
			Subsystem: "analytics",
			Name:      "errors_total",
			Help:      "Errors by analytics endpoint",
		},
		[]string{"endpoint"},
	)

	ReportCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finevent",
			Subsystem: "analytics",
			Name:      "cache_lookups_total",
			Help:      "Report cache lookups by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalyticsLatency, AnalyticsErrors, ReportCache)
	})
}

// Observe records one analytics call. It is meant to be deferred:
//
//	defer metrics.Observe("sessions", time.Now(), &err)
func Observe(endpoint string, start time.Time, err *error) {
	AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		AnalyticsErrors.WithLabelValues(endpoint).Inc()
	}
}

func CacheLookup(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ReportCache.WithLabelValues(endpoint, result).Inc()
}
