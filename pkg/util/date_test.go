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

func TestParseTimeUnixMillis(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	got, ok := ParseTime(strconv.FormatInt(want.UnixMilli(), 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestTruncateHour(t *testing.T) {
	in := time.Date(2024, 10, 10, 10, 59, 59, 999, time.FixedZone("X", 2*3600))
	got := TruncateHour(in)
	want := time.Date(2024, 10, 10, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("unexpected %v", got)
	}
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2024, 10, 10, 12, 30, 0, 0, time.UTC)
	start, end := TrailingWindow(now, 24*time.Hour)
	if !end.Equal(now) || !start.Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("unexpected window %v..%v", start, end)
	}
}

func TestHourLabel(t *testing.T) {
	if got := HourLabel(time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)); got != "05:00" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 || ParseIntDefault("x", 7) != 7 || ParseIntDefault(" 42 ", 7) != 42 {
		t.Fatalf("unexpected parse")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV("a, b,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected %v", got)
	}
}
