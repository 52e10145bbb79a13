package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordBarsIngested("yahoo", "ZN", 3)
	r.RecordBarsIngested("yahoo", "ZN", 2)
	r.RecordExcluded("ZN", 1, 4)
	r.RecordExcluded("ZB", 1, 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.barsIngested.WithLabelValues("yahoo", "ZN")))
	assert.Equal(t, 0.25, testutil.ToFloat64(r.excludedRatio.WithLabelValues("ZN")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.excludedRatio))
}
