package usecase

import (
	"context"
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
	drepo "FinEvent/internal/domain/repository"
	"FinEvent/internal/services/timeseries"
)

const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// BarProcessor normalizes bars and routes them to the configured backend.
type BarProcessor struct {
	pub     drepo.BarPublisher
	store   drepo.BarStore
	norm    *timeseries.Normalizer
	metrics drepo.Metrics
	backend string
	batchSz int
}

func NewBarProcessor(
	pub drepo.BarPublisher,
	store drepo.BarStore,
	norm *timeseries.Normalizer,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
) *BarProcessor {
	if batchSz <= 0 {
		batchSz = 2000
	}
	return &BarProcessor{
		pub:     pub,
		store:   store,
		norm:    norm,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
	}
}

// Process normalizes one symbol's bars and sends them downstream in chunks.
func (p *BarProcessor) Process(ctx context.Context, source string, interval models.Interval, bars []models.Bar) error {
	bars = p.norm.Bars(bars, interval)
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	for lo := 0; lo < len(bars); lo += p.batchSz {
		hi := min(lo+p.batchSz, len(bars))
		if err := p.route(ctx, bars[lo:hi]); err != nil {
			p.metrics.RecordError("process_bars")
			return fmt.Errorf("process %d bars: %w", hi-lo, err)
		}
	}

	bySymbol := map[string]int{}
	for _, b := range bars {
		bySymbol[b.Symbol]++
	}
	for sym, n := range bySymbol {
		p.metrics.RecordBarsIngested(source, sym, n)
	}
	last := bars[len(bars)-1]
	p.metrics.RecordLastClose(last.Symbol, last.Close)
	p.metrics.RecordLatency("process_bars", time.Since(start).Seconds())
	return nil
}

func (p *BarProcessor) route(ctx context.Context, bars []models.Bar) error {
	switch p.backend {
	case BackendKafka:
		if p.pub == nil {
			return fmt.Errorf("kafka backend without publisher")
		}
		return p.pub.PublishBars(ctx, bars)
	case BackendClickHouse:
		if p.store == nil {
			return fmt.Errorf("clickhouse backend without store")
		}
		return p.store.StoreBars(ctx, bars)
	default:
		return fmt.Errorf("unknown backend: %s", p.backend)
	}
}

func (p *BarProcessor) Backend() string { return p.backend }

// Close releases the publisher. The store is closed by its owner.
func (p *BarProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
