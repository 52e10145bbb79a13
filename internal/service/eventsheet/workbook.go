// Package eventsheet reads the economic calendar workbook: one sheet per
// year plus an optional keyword to tier sheet.
package eventsheet

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/domain/service"
)

const (
	firstYear = 2015
	lastYear  = 3014

	colTime   = "time"
	colEvents = "events"
)

var dateLayouts = []string{
	"Monday, January 2, 2006",
	"Monday January 2, 2006",
	"Monday, Jan 2, 2006",
	"Mon, Jan 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Monday, 2 January 2006",
	"2 January 2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"03:04 PM",
}

// Workbook loads events from an .xlsx file on disk. Cell times are local to loc.
type Workbook struct {
	path string
	loc  *time.Location
}

func New(path string, loc *time.Location) *Workbook {
	if loc == nil {
		loc = time.UTC
	}
	return &Workbook{path: path, loc: loc}
}

func (w *Workbook) LoadEvents(ctx context.Context) (service.EventSheet, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return service.EventSheet{}, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer f.Close()
	return Parse(ctx, f, w.loc)
}

// ParseReader is LoadEvents for an uploaded workbook.
func ParseReader(ctx context.Context, r io.Reader, loc *time.Location) (service.EventSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return service.EventSheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f, loc)
}

// Parse combines every year sheet, last sheet first, and reads the tier sheet
// if one exists.
func Parse(ctx context.Context, f *excelize.File, loc *time.Location) (service.EventSheet, error) {
	if loc == nil {
		loc = time.UTC
	}
	var (
		out       service.EventSheet
		perSheet  [][]models.RawEvent
		tierSheet string
	)
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return service.EventSheet{}, err
		}
		trimmed := strings.TrimSpace(name)
		if isYearSheet(trimmed) {
			rows, err := f.GetRows(name)
			if err != nil {
				return service.EventSheet{}, fmt.Errorf("read sheet %s: %w", name, err)
			}
			events, err := parseYearSheet(trimmed, rows, loc)
			if err != nil {
				return service.EventSheet{}, err
			}
			perSheet = append(perSheet, events)
			continue
		}
		if tierSheet == "" && strings.Contains(strings.ToLower(trimmed), "tier") {
			tierSheet = name
		}
	}
	for i := len(perSheet) - 1; i >= 0; i-- {
		out.Events = append(out.Events, perSheet[i]...)
	}

	if tierSheet != "" {
		rows, err := f.GetRows(tierSheet)
		if err != nil {
			return service.EventSheet{}, fmt.Errorf("read sheet %s: %w", tierSheet, err)
		}
		out.Tiers = parseTierSheet(rows)
	}
	return out, nil
}

func isYearSheet(name string) bool {
	y, err := strconv.Atoi(name)
	return err == nil && y >= firstYear && y <= lastYear && strconv.Itoa(y) == name
}

// parseYearSheet walks rows top to bottom. A time cell containing the sheet
// year is a date header for the rows below it; other rows carry a clock time.
// Rows above the first header or without an event name are skipped.
func parseYearSheet(year string, rows [][]string, loc *time.Location) ([]models.RawEvent, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	timeCol, eventCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case colTime:
			timeCol = i
		case colEvents:
			eventCol = i
		}
	}
	if timeCol < 0 {
		return nil, &models.MissingColumnError{Column: colTime, Input: "sheet " + year}
	}
	if eventCol < 0 {
		return nil, &models.MissingColumnError{Column: colEvents, Input: "sheet " + year}
	}

	var (
		events  []models.RawEvent
		current time.Time
		haveDay bool
	)
	for _, row := range rows[1:] {
		cell := strings.TrimSpace(cellAt(row, timeCol))
		if strings.Contains(cell, year) {
			day, ok := parseDate(cell, loc)
			haveDay = ok
			current = day
			continue
		}
		name := strings.TrimSpace(cellAt(row, eventCol))
		if !haveDay || name == "" {
			continue
		}
		ts := current
		if h, m, s, ok := parseClock(cell); ok {
			ts = time.Date(current.Year(), current.Month(), current.Day(), h, m, s, 0, loc)
		}
		events = append(events, models.RawEvent{Timestamp: ts, Name: name})
	}
	return events, nil
}

func parseTierSheet(rows [][]string) []service.TierKeyword {
	var tiers []service.TierKeyword
	for _, row := range rows {
		keyword := strings.TrimSpace(cellAt(row, 0))
		tier, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(cellAt(row, 1)), ".0"))
		// header rows and notes have no numeric tier
		if keyword == "" || err != nil {
			continue
		}
		tiers = append(tiers, service.TierKeyword{Keyword: keyword, Tier: tier})
	}
	return tiers
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}

// parseClock accepts a bare clock or a datetime whose clock part is used.
func parseClock(s string) (h, m, sec int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}
	candidates := []string{s}
	if fields := strings.Fields(s); len(fields) > 1 {
		candidates = append(candidates, strings.Join(fields[1:], " "))
	}
	for _, c := range candidates {
		for _, layout := range clockLayouts {
			if t, err := time.Parse(layout, strings.ToUpper(c)); err == nil {
				return t.Hour(), t.Minute(), t.Second(), true
			}
		}
	}
	return 0, 0, 0, false
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
