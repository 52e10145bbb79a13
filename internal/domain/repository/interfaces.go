package repository

import (
	"context"
	"time"

	"FinEvent/internal/domain/models"
)

// BarQuery selects stored bars. Zero From/To leave the range open; Limit <= 0
// returns everything.
type BarQuery struct {
	Symbol   string
	Interval models.Interval
	From     time.Time
	To       time.Time
	Limit    int
}

// BarStore persists normalized bars. Storing a bar whose (symbol, interval,
// timestamp) already exists replaces it.
type BarStore interface {
	Init(ctx context.Context) error
	StoreBars(ctx context.Context, bars []models.Bar) error
	QueryBars(ctx context.Context, q BarQuery) ([]models.Bar, error)
	LatestBarTime(ctx context.Context, symbol string, interval models.Interval) (time.Time, error)
	Health(ctx context.Context) error
	Close() error
}

type EventStore interface {
	StoreEvents(ctx context.Context, events []models.RawEvent, source string) error
	QueryEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error)
}

// TaggedStore keeps the last computed tagging of a series for inspection.
type TaggedStore interface {
	StoreTagged(ctx context.Context, symbol string, interval models.Interval, series models.TaggedSeries) error
}

// BarPublisher ships bars to a downstream backend instead of storing them.
type BarPublisher interface {
	PublishBars(ctx context.Context, bars []models.Bar) error
	Close() error
}

// ReportPublisher announces computed reports and matrices.
type ReportPublisher interface {
	PublishReport(ctx context.Context, kind, key string, report interface{}) error
}

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Metrics interface {
	RecordBarsIngested(source, symbol string, n int)
	RecordEventsIngested(source string, n int)
	RecordExcluded(symbol string, excluded, total int)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
