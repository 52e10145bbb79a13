package usecase

import (
	"context"
	"sync"
	"time"

	"FinEvent/internal/domain/models"
	drepo "FinEvent/internal/domain/repository"
	mid "FinEvent/internal/middleware"
	"FinEvent/internal/service/finnhub"
	"FinEvent/pkg/logger"
)

// BarSink folds live trades into bars and hands closed bars to the processor.
type BarSink struct {
	agg      *finnhub.BarAggregator
	proc     *BarProcessor
	interval models.Interval
}

func NewBarSink(agg *finnhub.BarAggregator, proc *BarProcessor, interval models.Interval) *BarSink {
	return &BarSink{agg: agg, proc: proc, interval: interval}
}

func (s *BarSink) Process(ctx context.Context, t models.Trade) error {
	bar, closed := s.agg.Add(t)
	if !closed {
		return nil
	}
	return s.proc.Process(ctx, "finnhub", s.interval, []models.Bar{bar})
}

// Flush sends every bar whose interval has ended by now.
func (s *BarSink) Flush(ctx context.Context, now time.Time) error {
	bars := s.agg.Flush(now)
	if len(bars) == 0 {
		return nil
	}
	return s.proc.Process(ctx, "finnhub", s.interval, bars)
}

// TradeCollector reads the live trade stream and feeds the bar sink through
// the realtime pipeline.
type TradeCollector struct {
	stream  drepo.MarketStream
	sink    *BarSink
	pipe    *mid.RealtimePipeline
	metrics drepo.Metrics
	log     *logger.Logger

	flushEvery time.Duration
	wg         sync.WaitGroup
}

func NewTradeCollector(stream drepo.MarketStream, sink *BarSink, pipe *mid.RealtimePipeline, metrics drepo.Metrics, log *logger.Logger) *TradeCollector {
	if log == nil {
		log = logger.NewNop()
	}
	return &TradeCollector{
		stream:     stream,
		sink:       sink,
		pipe:       pipe,
		metrics:    metrics,
		log:        log,
		flushEvery: 5 * time.Second,
	}
}

func (c *TradeCollector) IsConnected() bool { return c.stream.IsConnected() }

func (c *TradeCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)

	c.wg.Add(2)
	go c.consume(ctx)
	go c.flushLoop(ctx)
	return nil
}

func (c *TradeCollector) consume(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		trades, errs := c.stream.Read(ctx)
		c.drain(ctx, trades)
		if err := <-errs; err != nil {
			c.metrics.RecordError("stream")
			c.log.Warn("trade stream interrupted", logger.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.log.Error("trade stream reconnect", logger.Error(err))
		}
	}
}

func (c *TradeCollector) drain(ctx context.Context, trades <-chan models.Trade) {
	for t := range trades {
		if err := c.pipe.Process(ctx, t); err != nil {
			c.log.Debug("trade not processed", logger.String("symbol", t.Symbol), logger.Error(err))
		}
	}
}

func (c *TradeCollector) flushLoop(ctx context.Context) {
	defer c.wg.Done()
	t := time.NewTicker(c.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := c.sink.Flush(ctx, now); err != nil {
				c.metrics.RecordError("bar_flush")
				c.log.Warn("flush live bars", logger.Error(err))
			}
		}
	}
}

// Shutdown closes the stream, stops the pipeline and pushes out the bars
// still open. Cancel the context given to Start first so the reader exits.
func (c *TradeCollector) Shutdown(ctx context.Context) error {
	err := c.stream.Close()
	c.pipe.Stop()

	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if ferr := c.sink.Flush(ctx, time.Now().Add(24*time.Hour)); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
