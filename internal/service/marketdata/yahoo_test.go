package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"ZN=F"},
"timestamp":[1709904600,1709908200,1709911800],
"indicators":{"quote":[{"open":[110.1,null,110.3],"high":[110.4,110.5,110.6],"low":[110.0,110.1,110.2],"close":[110.2,110.3,110.5],"volume":[100,200,null]}],
"adjclose":[{"adjclose":[110.2,110.3,110.45]}]}}],"error":null}}`

func TestFetchBars(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL, 5*time.Second)
	from := time.Unix(1709900000, 0)
	bars, err := y.FetchBars(context.Background(), "ZN=F", models.Interval1h, from, from.Add(24*time.Hour))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/v8/finance/chart/ZN=F", got.URL.Path)
	assert.Equal(t, "60m", got.URL.Query().Get("interval"))
	assert.Equal(t, "1709900000", got.URL.Query().Get("period1"))
	assert.Contains(t, got.Header.Get("User-Agent"), "FinEvent")

	require.Len(t, bars, 2, "null open is skipped")
	assert.Equal(t, time.Unix(1709904600, 0).UTC(), bars[0].Timestamp)
	assert.Equal(t, 110.1, bars[0].Open)
	assert.Equal(t, 100.0, bars[0].Volume)
	assert.Equal(t, 110.45, bars[1].AdjClose)
	assert.Equal(t, 0.0, bars[1].Volume)
	assert.Equal(t, models.Interval1h, bars[1].Interval)
}

func TestFetchRangeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL, time.Second).FetchRange(context.Background(), "NOPE", models.Interval1d, "5d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestParseChartWithoutResult(t *testing.T) {
	_, err := parseChart([]byte(`{"chart":{"result":[],"error":null}}`), "X", models.Interval1d)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = parseChart([]byte(`{`), "X", models.Interval1d)
	assert.Error(t, err)
}
