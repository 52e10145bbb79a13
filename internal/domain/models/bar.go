package models

import "time"

// Bar is one OHLCV observation at a fixed interval.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Interval  Interval  `json:"interval"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close"`
	Volume    float64   `json:"volume"`
}

// Valid reports whether the bar carries a usable price range.
func (b Bar) Valid() bool {
	if b.Timestamp.IsZero() || b.Symbol == "" {
		return false
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	return b.High >= b.Low
}

// CloneBars returns an independent copy of bars.
func CloneBars(bars []Bar) []Bar {
	if bars == nil {
		return nil
	}
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}
