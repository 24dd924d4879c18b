package models

import (
	"testing"
	"time"
)

func TestFormatBarcode(t *testing.T) {
	cases := []struct {
		name     string
		unitCode string
		dept     string
		section  string
		year     int
		seq      int
		want     string
	}{
		{"four segments", "GOA", "QC", "", 2026, 7, "GOA/QC/2026/00007"},
		{"five segments with section", "GOA", "QC", "Micro", 2026, 123, "GOA/QC/Micro/2026/00123"},
		{"segment cleanup", "GOA", "Quality - Control", "", 2026, 1, "GOA/QualityCon/2026/00001"},
		{"large sequence keeps width", "GOA", "QC", "", 2026, 123456, "GOA/QC/2026/123456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatBarcode(tc.unitCode, tc.dept, tc.section, tc.year, tc.seq)
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestCrateIsEligibleForDestruction(t *testing.T) {
	now := time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	cases := []struct {
		name  string
		crate Crate
		want  bool
	}{
		{"due earlier this year", Crate{Status: CrateStatusActive, DestructionDate: date(2026, time.March, 1)}, true},
		{"due on the 1st of current month", Crate{Status: CrateStatusActive, DestructionDate: date(2026, time.August, 1)}, true},
		{"due on the last day of current month", Crate{Status: CrateStatusActive, DestructionDate: date(2026, time.August, 31)}, true},
		{"due next month", Crate{Status: CrateStatusActive, DestructionDate: date(2026, time.September, 1)}, false},
		{"retained", Crate{Status: CrateStatusActive, ToBeRetained: true, DestructionDate: date(2026, time.March, 1)}, false},
		{"no date", Crate{Status: CrateStatusActive}, false},
		{"already destroyed", Crate{Status: CrateStatusDestroyed, DestructionDate: date(2026, time.March, 1)}, false},
		{"withdrawn but due", Crate{Status: CrateStatusWithdrawn, DestructionDate: date(2026, time.July, 1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.crate.IsEligibleForDestruction(now); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
