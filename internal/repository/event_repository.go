package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinEvent/internal/domain/models"
)

func (s *CHStore) StoreEvents(ctx context.Context, events []models.RawEvent, source string) error {
	q := fmt.Sprintf("INSERT INTO %s.events (ts, name, source) VALUES (?, ?, ?)", s.ch.Database())
	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp.IsZero() || strings.TrimSpace(ev.Name) == "" {
			continue
		}
		rows = append(rows, []any{ev.Timestamp.UTC(), ev.Name, source})
	}
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		return fmt.Errorf("store events: %w", err)
	}
	return nil
}

func (s *CHStore) QueryEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	q := fmt.Sprintf("SELECT ts, name FROM %s.events FINAL WHERE ts >= ? AND ts <= ? ORDER BY ts ASC, name ASC", s.ch.Database())
	if to.IsZero() {
		to = time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rows, err := s.ch.DB().QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.RawEvent
	for rows.Next() {
		var ev models.RawEvent
		if err := rows.Scan(&ev.Timestamp, &ev.Name); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *CHStore) StoreTagged(ctx context.Context, symbol string, interval models.Interval, series models.TaggedSeries) error {
	q := fmt.Sprintf(`INSERT INTO %s.tagged_bars
	(symbol, interval, ts, session, close, event_names, event_tier, event_flags, excluded)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.ch.Database())

	rows := make([][]any, 0, len(series.Bars))
	for _, tb := range series.Bars {
		var (
			names string
			tier  uint8
			flags = []string{}
		)
		if ref := tb.EventAt; ref != nil {
			names, tier = ref.Names, uint8(ref.Tier)
			for k, v := range ref.Flags {
				if v {
					flags = append(flags, k)
				}
			}
			sort.Strings(flags)
		}
		excluded := uint8(0)
		if tb.Exclude {
			excluded = 1
		}
		rows = append(rows, []any{
			symbol, string(interval), tb.Timestamp.UTC(), string(tb.Session), tb.Close,
			names, tier, flags, excluded,
		})
	}
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		return fmt.Errorf("store tagged bars: %w", err)
	}
	return nil
}
