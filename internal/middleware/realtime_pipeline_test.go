package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
	"FinEvent/pkg/metrics"
)

type recorder struct {
	mu     sync.Mutex
	trades []models.Trade
	fail   bool
}

func (r *recorder) Process(_ context.Context, t models.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("downstream unavailable")
	}
	r.trades = append(r.trades, t)
	return nil
}

func (r *recorder) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

func trade(sym string, price float64) models.Trade {
	return models.Trade{Symbol: sym, Price: price, Volume: 1, Timestamp: time.Now()}
}

func TestPipelineValidatesTrades(t *testing.T) {
	rec := &recorder{}
	p := NewRealtimePipeline(rec, metrics.Nop{}, WithMaxRPS(0))

	assert.Error(t, p.Process(context.Background(), models.Trade{Price: 1, Timestamp: time.Now()}))
	assert.Error(t, p.Process(context.Background(), models.Trade{Symbol: "ZN", Price: 0, Timestamp: time.Now()}))
	assert.Error(t, p.Process(context.Background(), models.Trade{Symbol: "ZN", Price: 1}))
	require.NoError(t, p.Process(context.Background(), trade("ZN", 110)))
	assert.Equal(t, 1, rec.count())
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	rec := &recorder{}
	p := NewRealtimePipeline(rec, metrics.Nop{}, WithMaxRPS(1))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Process(context.Background(), trade("ZN", 110)))
	}
	require.NoError(t, p.Process(context.Background(), trade("ZB", 120)))
	assert.Equal(t, 2, rec.count())
}

func TestPipelineTransform(t *testing.T) {
	rec := &recorder{}
	p := NewRealtimePipeline(rec, metrics.Nop{}, WithMaxRPS(0), WithTransform(func(t models.Trade) models.Trade {
		t.Symbol = "ZN"
		return t
	}))
	require.NoError(t, p.Process(context.Background(), trade("OANDA:ZN", 110)))
	require.Equal(t, 1, rec.count())
	assert.Equal(t, "ZN", rec.trades[0].Symbol)
}

func TestPipelineBuffersAndRedelivers(t *testing.T) {
	rec := &recorder{fail: true}
	p := NewRealtimePipeline(rec, metrics.Nop{}, WithMaxRPS(0), WithBufferSize(4))

	assert.Error(t, p.Process(context.Background(), trade("ZN", 110)))
	assert.Error(t, p.Process(context.Background(), trade("ZN", 111)))
	assert.Equal(t, 2, p.Buffered())

	rec.setFail(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	assert.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, p.Buffered())
}
