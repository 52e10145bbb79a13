package api

import (
	"time"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/services/classifier"
	"FinEvent/internal/services/returns"
	xhttp "FinEvent/pkg/http"
	xutil "FinEvent/pkg/util"
)

type SeriesRequest struct {
	Symbol   string `query:"symbol" validate:"required"`
	Interval string `query:"interval" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 1d 1wk 1mo"`
	From     string `query:"from"`
	To       string `query:"to"`
	NonEvent bool   `query:"nonevent"`
}

// params resolves the time range; naive times are read in loc.
func (r SeriesRequest) params(loc *time.Location) (seriesRange, error) {
	from, err := parseTime("from", r.From, loc)
	if err != nil {
		return seriesRange{}, err
	}
	to, err := parseTime("to", r.To, loc)
	if err != nil {
		return seriesRange{}, err
	}
	return seriesRange{interval: models.Interval(r.Interval), from: from, to: to}, nil
}

type seriesRange struct {
	interval models.Interval
	from, to time.Time
}

func parseTime(field, raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, _, ok := xutil.ParseTimeIn(raw, loc)
	if !ok {
		e := xhttp.BadRequestErrorf("%s: unrecognised time %q", field, raw)
		e.Field = field
		return time.Time{}, e
	}
	return t, nil
}

type BarsRequest struct {
	SeriesRequest
	Limit int `query:"limit" default:"10000" validate:"gte=1,lte=50000"`
}

type ReportRequest struct {
	SeriesRequest
	Start   string `query:"start"`
	End     string `query:"end"`
	Month   int    `query:"month" validate:"gte=0,lte=12"`
	DayFrom int    `query:"day_from" validate:"gte=0,lte=31"`
	DayTo   int    `query:"day_to" validate:"gte=0,lte=31"`
	Latest  int    `query:"latest" validate:"gte=0,lte=365"`
}

// filter builds the date filter. A month without a day range covers the
// whole month.
func (r ReportRequest) filter() (returns.DateFilter, error) {
	var f returns.DateFilter
	if r.Start != "" {
		d, err := models.ParseDate(r.Start)
		if err != nil {
			return f, xhttp.BadRequestErrorf("start: %v", err)
		}
		f.Start = d
	}
	if r.End != "" {
		d, err := models.ParseDate(r.End)
		if err != nil {
			return f, xhttp.BadRequestErrorf("end: %v", err)
		}
		f.End = d
	}
	if r.Month != 0 {
		f.Month = time.Month(r.Month)
		f.DayFrom, f.DayTo = r.DayFrom, r.DayTo
		if f.DayFrom == 0 {
			f.DayFrom = 1
		}
		if f.DayTo == 0 {
			f.DayTo = 31
		}
	}
	return f, nil
}

type MatrixRequest struct {
	SeriesRequest
	Hours   int     `query:"hours" validate:"gte=0,lte=240"`
	Target  float64 `query:"target"`
	Version string  `query:"version" default:"Absolute"`
}

type OverviewRequest struct {
	ReportRequest
	Hours   int     `query:"hours" validate:"gte=0,lte=240"`
	Target  float64 `query:"target"`
	Version string  `query:"version" default:"Absolute"`
}

type EventInput struct {
	Timestamp string `json:"timestamp" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

type ClassifyRequest struct {
	Events   []EventInput         `json:"events" validate:"required,min=1,max=10000,dive"`
	Keywords *classifier.Keywords `json:"keywords,omitempty"`
}

type StoreEventsRequest struct {
	Source string       `json:"source" default:"api" validate:"max=64"`
	Events []EventInput `json:"events" validate:"required,min=1,max=50000,dive"`
}

func rawEvents(in []EventInput, loc *time.Location) ([]models.RawEvent, error) {
	out := make([]models.RawEvent, 0, len(in))
	for i, ev := range in {
		t, _, ok := xutil.ParseTimeIn(ev.Timestamp, loc)
		if !ok {
			e := xhttp.BadRequestErrorf("events[%d]: unrecognised timestamp %q", i, ev.Timestamp)
			e.Field = "timestamp"
			return nil, e
		}
		out = append(out, models.RawEvent{Timestamp: t, Name: ev.Name})
	}
	return out, nil
}
