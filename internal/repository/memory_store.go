package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
)

type barKey struct {
	symbol   string
	interval models.Interval
}

// MemoryStore is a process-local BarStore, EventStore and TaggedStore. The
// CLI runs on it and tests use it in place of ClickHouse.
type MemoryStore struct {
	mu     sync.RWMutex
	bars   map[barKey]map[int64]models.Bar
	events map[string]models.RawEvent
	tagged map[barKey]models.TaggedSeries
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bars:   make(map[barKey]map[int64]models.Bar),
		events: make(map[string]models.RawEvent),
		tagged: make(map[barKey]models.TaggedSeries),
	}
}

func (m *MemoryStore) Init(context.Context) error { return nil }

func (m *MemoryStore) StoreBars(_ context.Context, bars []models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bars {
		if !b.Valid() {
			continue
		}
		k := barKey{b.Symbol, b.Interval}
		if m.bars[k] == nil {
			m.bars[k] = make(map[int64]models.Bar)
		}
		m.bars[k][b.Timestamp.UnixNano()] = b
	}
	return nil
}

func (m *MemoryStore) QueryBars(_ context.Context, q domrepo.BarQuery) ([]models.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Bar
	for _, b := range m.bars[barKey{q.Symbol, q.Interval}] {
		if !q.From.IsZero() && b.Timestamp.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && b.Timestamp.After(q.To) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

func (m *MemoryStore) LatestBarTime(_ context.Context, symbol string, interval models.Interval) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest time.Time
	for _, b := range m.bars[barKey{symbol, interval}] {
		if b.Timestamp.After(latest) {
			latest = b.Timestamp
		}
	}
	return latest, nil
}

func (m *MemoryStore) StoreEvents(_ context.Context, events []models.RawEvent, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		if ev.Timestamp.IsZero() || ev.Name == "" {
			continue
		}
		m.events[ev.Timestamp.UTC().Format(time.RFC3339Nano)+"|"+ev.Name] = ev
	}
	return nil
}

func (m *MemoryStore) QueryEvents(_ context.Context, from, to time.Time) ([]models.RawEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.RawEvent
	for _, ev := range m.events {
		if !from.IsZero() && ev.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Timestamp.After(to) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStore) StoreTagged(_ context.Context, symbol string, interval models.Interval, series models.TaggedSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagged[barKey{symbol, interval}] = series
	return nil
}

// Tagged returns the last stored tagging for symbol.
func (m *MemoryStore) Tagged(symbol string, interval models.Interval) (models.TaggedSeries, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.tagged[barKey{symbol, interval}]
	return s, ok
}

func (m *MemoryStore) Health(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
