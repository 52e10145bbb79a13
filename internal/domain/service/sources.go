package service

import (
	"context"
	"time"

	"FinEvent/internal/domain/models"
)

// BarSource fetches raw bars from a market data provider. Timestamps may be
// in any location; the normalizer converts them.
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, interval models.Interval, from, to time.Time) ([]models.Bar, error)
}

// RangeBarSource can also fetch a provider-defined trailing window such as
// "5d", used when nothing is stored yet.
type RangeBarSource interface {
	BarSource
	FetchRange(ctx context.Context, symbol string, interval models.Interval, rng string) ([]models.Bar, error)
}

// EventSource loads the economic calendar. Tiers, when the source carries a
// keyword table of its own, are returned alongside in scan order.
type EventSource interface {
	LoadEvents(ctx context.Context) (EventSheet, error)
}

type TierKeyword struct {
	Keyword string
	Tier    int
}

type EventSheet struct {
	Events []models.RawEvent
	Tiers  []TierKeyword
}
