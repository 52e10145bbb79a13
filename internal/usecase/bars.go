package usecase

import (
	"context"
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	"FinEvent/pkg/util"
)

const (
	defaultBarLimit = 10000
	maxBarLimit     = 50000
)

// BarsUseCase serves stored bars.
type BarsUseCase struct {
	store domrepo.BarStore
}

func NewBarsUseCase(store domrepo.BarStore) *BarsUseCase {
	return &BarsUseCase{store: store}
}

type GetBarsParams struct {
	Symbol   string
	Interval models.Interval
	From     time.Time
	To       time.Time
	Limit    int
}

type GetBarsResult struct {
	Symbol   string          `json:"symbol"`
	Interval models.Interval `json:"interval"`
	From     time.Time       `json:"from,omitempty"`
	To       time.Time       `json:"to,omitempty"`
	Count    int             `json:"count"`
	Bars     []models.Bar    `json:"bars"`
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", models.ErrInvalidArgument)
	}
	if !p.Interval.IsValid() {
		return nil, fmt.Errorf("%w: interval %q", models.ErrInvalidArgument, p.Interval)
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return nil, fmt.Errorf("%w: from must be <= to", models.ErrInvalidArgument)
	}
	if p.Interval.IsIntraday() && !p.From.IsZero() && !p.To.IsZero() {
		p.From, p.To = util.AlignFromTo(p.From, p.To, p.Interval.Duration())
	}
	if p.Limit <= 0 {
		p.Limit = defaultBarLimit
	}
	p.Limit = min(p.Limit, maxBarLimit)

	bars, err := uc.store.QueryBars(ctx, domrepo.BarQuery{
		Symbol: p.Symbol, Interval: p.Interval, From: p.From, To: p.To, Limit: p.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if bars == nil {
		bars = []models.Bar{}
	}
	return &GetBarsResult{
		Symbol:   p.Symbol,
		Interval: p.Interval,
		From:     p.From,
		To:       p.To,
		Count:    len(bars),
		Bars:     bars,
	}, nil
}
