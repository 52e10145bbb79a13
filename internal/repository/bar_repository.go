package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	pkgch "FinEvent/pkg/clickhouse"
	"FinEvent/pkg/logger"
)

const insertBarSQL = "INSERT INTO %s.bars (symbol, interval, ts, open, high, low, close, adj_close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

// CHStore keeps bars, events and tagged bars in ClickHouse.
type CHStore struct {
	ch        *pkgch.Client
	log       *logger.Logger
	chunkSize int
}

func NewCHStore(ch *pkgch.Client, log *logger.Logger, chunkSize int) *CHStore {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CHStore{ch: ch, log: log, chunkSize: chunkSize}
}

func (s *CHStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, pkgch.Schema(s.ch.Database()))
}

func (s *CHStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	q := fmt.Sprintf(insertBarSQL, s.ch.Database())
	for start := 0; start < len(bars); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		rows := make([][]any, 0, end-start)
		for _, b := range bars[start:end] {
			if !b.Valid() {
				continue
			}
			rows = append(rows, []any{
				b.Symbol, string(b.Interval), b.Timestamp.UTC(),
				b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume,
			})
		}
		if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
			s.log.Error("clickhouse store bars", logger.Int("rows", len(rows)), logger.Error(err))
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

// buildBarQuery reads deduplicated rows (FINAL) in ascending time order. A
// limit keeps the most recent rows.
func buildBarQuery(database string, q domrepo.BarQuery) (string, []any) {
	var (
		where = []string{"symbol = ?", "interval = ?"}
		args  = []any{q.Symbol, string(q.Interval)}
	)
	if !q.From.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, q.To.UTC())
	}

	inner := fmt.Sprintf(
		"SELECT symbol, interval, ts, open, high, low, close, adj_close, volume FROM %s.bars FINAL WHERE %s",
		database, strings.Join(where, " AND "))
	if q.Limit > 0 {
		inner += " ORDER BY ts DESC LIMIT ?"
		args = append(args, q.Limit)
		return "SELECT * FROM (" + inner + ") ORDER BY ts ASC", args
	}
	return inner + " ORDER BY ts ASC", args
}

func (s *CHStore) QueryBars(ctx context.Context, q domrepo.BarQuery) ([]models.Bar, error) {
	query, args := buildBarQuery(s.ch.Database(), q)
	rows, err := s.ch.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var (
			b        models.Bar
			interval string
		)
		if err := rows.Scan(&b.Symbol, &interval, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Interval = models.Interval(interval)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStore) LatestBarTime(ctx context.Context, symbol string, interval models.Interval) (time.Time, error) {
	q := fmt.Sprintf("SELECT max(ts), count() FROM %s.bars WHERE symbol = ? AND interval = ?", s.ch.Database())
	var (
		ts time.Time
		n  uint64
	)
	if err := s.ch.DB().QueryRowContext(ctx, q, symbol, string(interval)).Scan(&ts, &n); err != nil {
		return time.Time{}, fmt.Errorf("latest bar: %w", err)
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return ts, nil
}

func (s *CHStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHStore) Close() error { return s.ch.Close() }
