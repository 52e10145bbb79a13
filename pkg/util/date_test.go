package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeOffsetWithSpace(t *testing.T) {
	got, ok := ParseTime("2024-03-08 08:30:00-05:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Hour() != 13 {
		t.Fatalf("unexpected utc hour %d", got.UTC().Hour())
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeInNaive(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata not available")
	}
	got, naive, ok := ParseTimeIn("2024-03-08 19:00:00", kolkata)
	if !ok || !naive {
		t.Fatalf("expected naive parse, got ok=%v naive=%v", ok, naive)
	}
	if got.UTC().Format("15:04") != "13:30" {
		t.Fatalf("unexpected utc time %v", got.UTC())
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  Nonfarm Payrolls "); got != "nonfarm payrolls" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestAlignFromToIntraday(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	to := time.Date(2024, 10, 10, 13, 59, 0, 0, time.UTC)
	f, tt := AlignFromTo(from, to, time.Hour)
	if f.Hour() != 10 || f.Minute() != 0 || tt.Hour() != 13 || tt.Minute() != 0 {
		t.Fatalf("unexpected range %v %v", f, tt)
	}
}

func TestAlignFromToDaily(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	to := time.Date(2024, 10, 12, 23, 0, 0, 0, time.UTC)
	f, tt := AlignFromTo(from, to, 24*time.Hour)
	if f.Hour() != 0 || tt.Day() != 12 || tt.Hour() != 0 {
		t.Fatalf("unexpected range %v %v", f, tt)
	}
}
