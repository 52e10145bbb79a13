package models

import (
	"math"
	"strconv"
)

// Number is a float that may be undefined (NaN or infinite). Undefined values
// encode as JSON null and as an empty CSV cell.
type Number float64

func (n Number) Float() float64 { return float64(n) }

func (n Number) Defined() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (n Number) MarshalCSV() (string, error) {
	if !n.Defined() {
		return "", nil
	}
	return strconv.FormatFloat(float64(n), 'f', 4, 64), nil
}

// Quantiles reported by every summary, in percent.
var SummaryQuantiles = []float64{5, 10, 25, 50, 68, 75, 90, 95, 99, 99.7}

// SessionValue is one day's return or volatility for one session, in bps.
// High and Low are only filled for volatility rows.
type SessionValue struct {
	Date    Date    `json:"date"`
	Session Session `json:"session"`
	Value   float64 `json:"value"`
	High    float64 `json:"high,omitempty"`
	Low     float64 `json:"low,omitempty"`
}

// Quantile is one point of the empirical distribution.
type Quantile struct {
	Percent float64 `json:"percent"`
	Value   float64 `json:"value"`
}

// Summary holds descriptive statistics of a sample. Std, Skew and Kurtosis
// are undefined when the sample is too small. An empty sample has Count 0
// and zero values elsewhere.
type Summary struct {
	Count     int        `json:"count"`
	Mean      float64    `json:"mean"`
	Median    float64    `json:"median"`
	Std       Number     `json:"std"`
	Skew      Number     `json:"skew"`
	Kurtosis  Number     `json:"kurtosis"`
	Min       float64    `json:"min"`
	Max       float64    `json:"max"`
	Quantiles []Quantile `json:"quantiles"`
}

// LatestRow is one row of a latest-N-days view.
type LatestRow struct {
	Date     Date    `json:"date"`
	Value    float64 `json:"value"`
	ZAll     Number  `json:"z_all"`
	ZLatestN Number  `json:"z_latest_n"`
}

// LatestView is the tail of a session series with z-scores against the full
// history and against the tail itself.
type LatestView struct {
	Days    int         `json:"days"`
	Rows    []LatestRow `json:"rows"`
	Summary Summary     `json:"summary"`
}

// SessionStats describes one session's history.
type SessionStats struct {
	Session          Session        `json:"session"`
	Series           []SessionValue `json:"series"`
	Summary          Summary        `json:"summary"`
	Latest           LatestView     `json:"latest"`
	LatestValue      float64        `json:"latest_value"`
	LatestDate       Date           `json:"latest_date"`
	LatestPercentile Number         `json:"latest_percentile"`
}

// Measure selects what a session report aggregates.
type Measure string

const (
	MeasureReturn     Measure = "return"
	MeasureVolatility Measure = "volatility"
)

// SessionReport is the per-session statistics of one symbol and interval.
// Empty is set when no bars survived filtering.
type SessionReport struct {
	Symbol   string         `json:"symbol"`
	Interval Interval       `json:"interval"`
	Measure  Measure        `json:"measure"`
	NonEvent bool           `json:"non_event"`
	From     Date           `json:"from"`
	To       Date           `json:"to"`
	Sessions []SessionStats `json:"sessions"`
	Empty    bool           `json:"empty"`
}

// Err returns ErrEmptySeries for an empty report.
func (r SessionReport) Err() error {
	if r.Empty {
		return ErrEmptySeries
	}
	return nil
}
