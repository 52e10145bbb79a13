// Package marketdata fetches OHLCV bars from the Yahoo Finance chart API.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"FinEvent/internal/domain/models"
	apphttp "FinEvent/pkg/http"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) FinEvent/1.0"

// ErrNoData is returned when the provider answers without a chart result.
var ErrNoData = errors.New("marketdata: no data")

type Yahoo struct {
	baseURL string
	client  *apphttp.Client
}

// NewYahoo builds a chart API source. Options are appended to the defaults
// so callers may override the timeout or retries.
func NewYahoo(baseURL string, timeout time.Duration, opts ...apphttp.ClientOption) *Yahoo {
	base := []apphttp.ClientOption{
		apphttp.WithTimeout(timeout),
		apphttp.WithHeader("User-Agent", userAgent),
		apphttp.WithHeader("Accept", "application/json"),
		apphttp.WithRetries(2, time.Second),
	}
	return &Yahoo{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  apphttp.NewClient(append(base, opts...)...),
	}
}

// FetchBars returns bars in [from, to]. Timestamps are UTC.
func (y *Yahoo) FetchBars(ctx context.Context, symbol string, interval models.Interval, from, to time.Time) ([]models.Bar, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	return y.fetch(ctx, symbol, interval, q)
}

// FetchRange returns the provider's trailing window, e.g. "5d" or "1mo".
func (y *Yahoo) FetchRange(ctx context.Context, symbol string, interval models.Interval, rng string) ([]models.Bar, error) {
	q := url.Values{}
	q.Set("range", rng)
	return y.fetch(ctx, symbol, interval, q)
}

func (y *Yahoo) fetch(ctx context.Context, symbol string, interval models.Interval, q url.Values) ([]models.Bar, error) {
	q.Set("interval", providerInterval(interval))
	q.Set("includePrePost", "false")
	q.Set("events", "div,splits")

	body, err := y.client.Do(ctx, &apphttp.RequestOptions{
		Method: http.MethodGet,
		URL:    y.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		Query:  q,
	})
	if err != nil {
		var se *apphttp.StatusError
		if errors.As(err, &se) {
			if msg := gjson.Get(se.Body, "chart.error.description").String(); msg != "" {
				return nil, fmt.Errorf("fetch %s %s: %s: %w", symbol, interval, msg, err)
			}
		}
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, interval, err)
	}
	return parseChart(body, symbol, interval)
}

func parseChart(body []byte, symbol string, interval models.Interval) ([]models.Bar, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("chart %s: invalid json", symbol)
	}
	doc := gjson.ParseBytes(body)
	if msg := doc.Get("chart.error.description"); msg.Exists() && msg.String() != "" {
		return nil, fmt.Errorf("chart %s: %s", symbol, msg.String())
	}
	res := doc.Get("chart.result.0")
	if !res.Exists() {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrNoData)
	}

	stamps := res.Get("timestamp").Array()
	quote := res.Get("indicators.quote.0")
	open := quote.Get("open").Array()
	high := quote.Get("high").Array()
	low := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volume := quote.Get("volume").Array()
	adj := res.Get("indicators.adjclose.0.adjclose").Array()

	bars := make([]models.Bar, 0, len(stamps))
	for i, ts := range stamps {
		o, h, l, c := at(open, i), at(high, i), at(low, i), at(closes, i)
		// Provider gaps come through as nulls.
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		b := models.Bar{
			Timestamp: time.Unix(ts.Int(), 0).UTC(),
			Symbol:    symbol,
			Interval:  interval,
			Open:      o.Float(),
			High:      h.Float(),
			Low:       l.Float(),
			Close:     c.Float(),
			AdjClose:  c.Float(),
		}
		if a := at(adj, i); a != nil {
			b.AdjClose = a.Float()
		}
		if v := at(volume, i); v != nil {
			b.Volume = v.Float()
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func at(values []gjson.Result, i int) *gjson.Result {
	if i >= len(values) || values[i].Type == gjson.Null {
		return nil
	}
	return &values[i]
}

func providerInterval(i models.Interval) string {
	if i == models.Interval1h {
		return "60m"
	}
	return string(i)
}
