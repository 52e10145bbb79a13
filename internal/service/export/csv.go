// Package export reads bar and event series from CSV and writes reports back
// out as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"FinEvent/internal/domain/models"
)

// TimeParser turns a timestamp cell into an instant. timeseries.Normalizer
// satisfies it.
type TimeParser interface {
	ParseTimestamp(s string) (time.Time, error)
}

type BarRow struct {
	Timestamp string  `csv:"timestamp"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	AdjClose  float64 `csv:"adj_close"`
	Volume    float64 `csv:"volume"`
}

type EventRow struct {
	Timestamp string `csv:"datetime"`
	Name      string `csv:"events"`
}

type ClassifiedRow struct {
	Timestamp string `csv:"datetime"`
	Name      string `csv:"events"`
	Tier      int    `csv:"tier"`
	Flags     string `csv:"flags"`
}

type SessionValueRow struct {
	Date    models.Date `csv:"date"`
	Session string      `csv:"session"`
	Value   float64     `csv:"value"`
	High    float64     `csv:"high"`
	Low     float64     `csv:"low"`
}

type LatestRow struct {
	Date     models.Date   `csv:"date"`
	Value    float64       `csv:"value"`
	ZAll     models.Number `csv:"z_all"`
	ZLatestN models.Number `csv:"z_latest_n"`
}

// MatrixRow is one cell of a probability matrix in long format.
type MatrixRow struct {
	Bucket      float64       `csv:"bucket"`
	Hours       int           `csv:"hours"`
	Probability models.Number `csv:"probability"`
}

// ReadBars parses a bar file. adj_close defaults to close when the column is
// absent or zero. Rows whose timestamp cannot be parsed fail the read.
func ReadBars(r io.Reader, symbol string, interval models.Interval, tp TimeParser) ([]models.Bar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if err := requireColumns(data, "bars "+symbol, "timestamp", "open", "high", "low", "close"); err != nil {
		return nil, err
	}
	var rows []BarRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		ts, err := tp.ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("bars row %d: %w", i+2, err)
		}
		adj := row.AdjClose
		if adj == 0 {
			adj = row.Close
		}
		bars = append(bars, models.Bar{
			Timestamp: ts,
			Symbol:    symbol,
			Interval:  interval,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			AdjClose:  adj,
			Volume:    row.Volume,
		})
	}
	return bars, nil
}

// ReadEvents parses a (datetime, events) file. Blank rows are skipped.
func ReadEvents(r io.Reader, tp TimeParser) ([]models.RawEvent, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	if err := requireColumns(data, "events", "datetime", "events"); err != nil {
		return nil, err
	}
	var rows []EventRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	events := make([]models.RawEvent, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" || strings.TrimSpace(row.Timestamp) == "" {
			continue
		}
		ts, err := tp.ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("events row %d: %w", i+2, err)
		}
		events = append(events, models.RawEvent{Timestamp: ts, Name: strings.TrimSpace(row.Name)})
	}
	return events, nil
}

func WriteBars(w io.Writer, bars []models.Bar) error {
	rows := make([]BarRow, len(bars))
	for i, b := range bars {
		rows[i] = BarRow{
			Timestamp: b.Timestamp.Format(time.RFC3339),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			AdjClose:  b.AdjClose,
			Volume:    b.Volume,
		}
	}
	return gocsv.Marshal(&rows, w)
}

// WriteClassified writes events with their tier and the names of the flags
// they carry, separated by '|'.
func WriteClassified(w io.Writer, events models.ClassifiedEvents) error {
	rows := make([]ClassifiedRow, len(events.Events))
	for i, e := range events.Events {
		var set []string
		for _, f := range events.Flags {
			if e.Flag(f) {
				set = append(set, f)
			}
		}
		sort.Strings(set)
		rows[i] = ClassifiedRow{
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Name:      e.Name,
			Tier:      e.Tier,
			Flags:     strings.Join(set, "|"),
		}
	}
	return gocsv.Marshal(&rows, w)
}

func WriteSessionValues(w io.Writer, values []models.SessionValue) error {
	rows := make([]SessionValueRow, len(values))
	for i, v := range values {
		rows[i] = SessionValueRow{Date: v.Date, Session: string(v.Session), Value: v.Value, High: v.High, Low: v.Low}
	}
	return gocsv.Marshal(&rows, w)
}

func WriteLatest(w io.Writer, view models.LatestView) error {
	rows := make([]LatestRow, len(view.Rows))
	for i, r := range view.Rows {
		rows[i] = LatestRow{Date: r.Date, Value: r.Value, ZAll: r.ZAll, ZLatestN: r.ZLatestN}
	}
	return gocsv.Marshal(&rows, w)
}

// WriteMatrix writes one row per (bucket, hours) cell. Undefined cells are
// left blank.
func WriteMatrix(w io.Writer, m models.ProbabilityMatrix) error {
	rows := make([]MatrixRow, 0, len(m.Buckets)*len(m.Hours))
	for i := range m.Buckets {
		for j := range m.Hours {
			c := m.Cell(i, j)
			rows = append(rows, MatrixRow{Bucket: c.Bucket, Hours: c.Hours, Probability: c.Probability})
		}
	}
	return gocsv.Marshal(&rows, w)
}

func requireColumns(data []byte, input string, cols ...string) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil && err != io.EOF {
		return fmt.Errorf("read %s header: %w", input, err)
	}
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	for _, c := range cols {
		if !have[c] {
			return &models.MissingColumnError{Column: c, Input: input}
		}
	}
	return nil
}
