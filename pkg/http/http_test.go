package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionQuery struct {
	Symbol string `query:"symbol" validate:"required"`
	Latest int    `query:"latest" default:"14" validate:"gte=0,lte=365"`
}

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBindAndValidateAppliesDefaults(t *testing.T) {
	c, _ := newContext("/?symbol=ZN")
	var q sessionQuery
	require.NoError(t, BindAndValidate(c, &q))
	assert.Equal(t, "ZN", q.Symbol)
	assert.Equal(t, 14, q.Latest)
}

func TestBindAndValidateReportsQueryName(t *testing.T) {
	c, _ := newContext("/?latest=1000")
	var q sessionQuery
	err := BindAndValidate(c, &q)
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	require.Len(t, appErr.Details, 2)
	assert.Equal(t, "symbol", appErr.Details[0].Field)
	assert.Equal(t, "ERR_REQUIRED", appErr.Details[0].Code)
	assert.Equal(t, "latest", appErr.Details[1].Field)
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	c, rec := newContext("/")
	require.NoError(t, AppErrorResponse(c, UnprocessableErrorf("column %s missing", "IND_Tier1")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 422, body.Status)
}

func TestAppErrorResponseHidesInternalErrors(t *testing.T) {
	c, rec := newContext("/")
	require.NoError(t, AppErrorResponse(c, errors.New("dsn password=secret")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "finevent-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithRetries(3, time.Millisecond), WithHeader("User-Agent", "finevent-test"))
	var out struct{ OK bool }
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, url.Values{"interval": {"1h"}}, &out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithRetries(3, time.Millisecond))
	_, err := c.Do(context.Background(), &RequestOptions{URL: srv.URL})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
