package finnhub

import (
	"sort"
	"sync"
	"time"

	"FinEvent/internal/domain/models"
)

// BarAggregator folds trades into OHLCV bars of one interval. A bar is
// emitted once a later trade for the same symbol starts a new bucket, or
// when Flush is called past the bucket end.
type BarAggregator struct {
	interval models.Interval
	step     time.Duration
	symbol   func(string) string

	mu   sync.Mutex
	open map[string]*models.Bar
}

// NewBarAggregator maps provider symbols through rename (nil keeps them).
func NewBarAggregator(interval models.Interval, rename func(string) string) *BarAggregator {
	if rename == nil {
		rename = func(s string) string { return s }
	}
	return &BarAggregator{
		interval: interval,
		step:     interval.Duration(),
		symbol:   rename,
		open:     make(map[string]*models.Bar),
	}
}

// Add folds t in and returns the bar it closed, if any. Trades older than
// the open bucket are dropped.
func (a *BarAggregator) Add(t models.Trade) (models.Bar, bool) {
	bucket := t.Timestamp.UTC().Truncate(a.step)

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.open[t.Symbol]
	switch {
	case !ok:
		a.open[t.Symbol] = a.newBar(t, bucket)
		return models.Bar{}, false
	case bucket.Equal(cur.Timestamp):
		cur.High = max(cur.High, t.Price)
		cur.Low = min(cur.Low, t.Price)
		cur.Close, cur.AdjClose = t.Price, t.Price
		cur.Volume += t.Volume
		return models.Bar{}, false
	case bucket.After(cur.Timestamp):
		done := *cur
		a.open[t.Symbol] = a.newBar(t, bucket)
		return done, true
	default:
		return models.Bar{}, false
	}
}

// Flush closes every bar whose bucket ended at or before now.
func (a *BarAggregator) Flush(now time.Time) []models.Bar {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []models.Bar
	for sym, b := range a.open {
		if !b.Timestamp.Add(a.step).After(now) {
			out = append(out, *b)
			delete(a.open, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (a *BarAggregator) newBar(t models.Trade, bucket time.Time) *models.Bar {
	return &models.Bar{
		Timestamp: bucket,
		Symbol:    a.symbol(t.Symbol),
		Interval:  a.interval,
		Open:      t.Price,
		High:      t.Price,
		Low:       t.Price,
		Close:     t.Price,
		AdjClose:  t.Price,
		Volume:    t.Volume,
	}
}
