package utils

import (
	"testing"
	"time"
)

func TestTruncateToMonthStart(t *testing.T) {
	in := time.Date(2026, time.August, 23, 15, 42, 7, 99, time.UTC)
	got := TruncateToMonthStart(in)
	want := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	// Already on the 1st stays put.
	if got2 := TruncateToMonthStart(want); !got2.Equal(want) {
		t.Fatalf("got %v want %v", got2, want)
	}
}

func TestEndOfCurrentMonth(t *testing.T) {
	cases := []struct {
		now      time.Time
		wantDay  int
		wantMon  time.Month
		wantYear int
	}{
		{time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC), 31, time.August, 2026},
		{time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), 28, time.February, 2026},
		{time.Date(2028, time.February, 3, 0, 0, 0, 0, time.UTC), 29, time.February, 2028},
		{time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC), 31, time.December, 2026},
	}
	for _, tc := range cases {
		got := EndOfCurrentMonth(tc.now)
		if got.Day() != tc.wantDay || got.Month() != tc.wantMon || got.Year() != tc.wantYear {
			t.Fatalf("EndOfCurrentMonth(%v) = %v", tc.now, got)
		}
		if !got.After(tc.now) && !got.Equal(tc.now) {
			t.Fatalf("end of month %v precedes now %v", got, tc.now)
		}
	}
}

func TestCleanBarcodeSegment(t *testing.T) {
	cases := []struct{ in, want string }{
		{"QC", "QC"},
		{"Quality Control", "QualityCon"},
		{"R-and-D", "RandD"},
		{"  spaced  ", "spaced"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanBarcodeSegment(tc.in); got != tc.want {
			t.Fatalf("CleanBarcodeSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
