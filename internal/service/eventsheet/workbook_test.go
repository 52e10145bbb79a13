package eventsheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/domain/service"
)

func writeSheet(t *testing.T, f *excelize.File, name string, rows [][]interface{}) {
	t.Helper()
	if _, err := f.NewSheet(name); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(name, cell, &r))
	}
}

func buildWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	writeSheet(t, f, "2023", [][]interface{}{
		{"Time", "Events"},
		{"Friday, December 1, 2023", ""},
		{"10:00", "ISM Manufacturing PMI"},
	})
	writeSheet(t, f, "2024", [][]interface{}{
		{" time ", "EVENTS"},
		{"09:00", "orphan before any date"},
		{"Friday, March 8, 2024", ""},
		{"8:30 AM", "Nonfarm Payrolls"},
		{"", ""},
		{"All Day", "Bank Holiday"},
		{"Tuesday, March 12, 2024", ""},
		{"08:30", "CPI m/m"},
	})
	writeSheet(t, f, "Tiers", [][]interface{}{
		{"Event", "Tier"},
		{"Payrolls", 1},
		{"PMI", "2"},
		{"note", "n/a"},
	})
	require.NoError(t, f.DeleteSheet("Sheet1"))

	path := filepath.Join(t.TempDir(), "events.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadEvents(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	sheet, err := New(buildWorkbook(t), ny).LoadEvents(context.Background())
	require.NoError(t, err)

	want := []models.RawEvent{
		{Timestamp: time.Date(2024, 3, 8, 8, 30, 0, 0, ny), Name: "Nonfarm Payrolls"},
		{Timestamp: time.Date(2024, 3, 8, 0, 0, 0, 0, ny), Name: "Bank Holiday"},
		{Timestamp: time.Date(2024, 3, 12, 8, 30, 0, 0, ny), Name: "CPI m/m"},
		{Timestamp: time.Date(2023, 12, 1, 10, 0, 0, 0, ny), Name: "ISM Manufacturing PMI"},
	}
	require.Len(t, sheet.Events, len(want))
	for i := range want {
		assert.True(t, want[i].Timestamp.Equal(sheet.Events[i].Timestamp), "event %d: %s", i, sheet.Events[i].Timestamp)
		assert.Equal(t, want[i].Name, sheet.Events[i].Name)
	}
	assert.Equal(t, []service.TierKeyword{{Keyword: "Payrolls", Tier: 1}, {Keyword: "PMI", Tier: 2}}, sheet.Tiers)
}

func TestMissingColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	writeSheet(t, f, "2024", [][]interface{}{{"Time", "Name"}, {"Friday, March 8, 2024", ""}})

	_, err := Parse(context.Background(), f, time.UTC)
	var mc *models.MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "events", mc.Column)
	assert.ErrorIs(t, err, models.ErrMissingRequiredColumn)
}

func TestParseClock(t *testing.T) {
	cases := map[string][3]int{
		"08:30":               {8, 30, 0},
		"2:00 pm":             {14, 0, 0},
		"1900-01-01 13:45:10": {13, 45, 10},
	}
	for in, want := range cases {
		h, m, s, ok := parseClock(in)
		require.True(t, ok, in)
		assert.Equal(t, want, [3]int{h, m, s}, in)
	}
	_, _, _, ok := parseClock("Tentative")
	assert.False(t, ok)
}

func TestIsYearSheet(t *testing.T) {
	assert.True(t, isYearSheet("2015"))
	assert.True(t, isYearSheet("3014"))
	assert.False(t, isYearSheet("2014"))
	assert.False(t, isYearSheet("3015"))
	assert.False(t, isYearSheet("02024"))
	assert.False(t, isYearSheet("Tiers"))
}
