package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics on Prometheus.
type Recorder struct {
	barsIngested   *prometheus.CounterVec
	eventsIngested *prometheus.CounterVec
	excludedRatio  *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec
	lastClose      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New registers the collectors on reg, or on the default registry when reg
// is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		barsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finevent_bars_ingested_total",
			Help: "Bars stored or published, by source",
		}, []string{"source", "symbol"}),
		eventsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finevent_events_ingested_total",
			Help: "Calendar events stored, by source",
		}, []string{"source"}),
		excludedRatio: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finevent_excluded_bar_ratio",
			Help: "Share of bars flagged by the non-event filter in the last run",
		}, []string{"symbol"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finevent_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		lastClose: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finevent_last_close",
			Help: "Last close seen for a symbol",
		}, []string{"symbol"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finevent_operation_duration_seconds",
			Help:    "Duration of pipeline operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordBarsIngested(source, symbol string, n int) {
	r.barsIngested.WithLabelValues(source, symbol).Add(float64(n))
}

func (r *Recorder) RecordEventsIngested(source string, n int) {
	r.eventsIngested.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) RecordExcluded(symbol string, excluded, total int) {
	if total == 0 {
		return
	}
	r.excludedRatio.WithLabelValues(symbol).Set(float64(excluded) / float64(total))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordBarsIngested(string, string, int) {}
func (Nop) RecordEventsIngested(string, int)       {}
func (Nop) RecordExcluded(string, int, int)        {}
func (Nop) RecordError(string)                     {}
func (Nop) RecordLastClose(string, float64)        {}
func (Nop) RecordLatency(string, float64)          {}
