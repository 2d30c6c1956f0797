package analytics

import (
	"testing"
	"time"
)

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday midnight", monday},
		{"monday evening", monday.Add(23 * time.Hour)},
		{"wednesday", monday.AddDate(0, 0, 2).Add(10 * time.Hour)},
		{"sunday last second", monday.AddDate(0, 0, 7).Add(-time.Second)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfWeek(tt.in, time.UTC)
			if !got.Equal(monday) {
				t.Errorf("StartOfWeek(%s) = %s, want %s", tt.in, got, monday)
			}
		})
	}
}

func TestStartOfWeek_ConvertsToLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// Monday 02:00 UTC is Sunday 21:00 at UTC-5, so the local week began the Monday before.
	in := time.Date(2026, 10, 12, 2, 0, 0, 0, time.UTC)

	got := StartOfWeek(in, loc)
	want := time.Date(2026, 10, 5, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestWeekWindow_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks go back on 2026-10-25, so this week is 169 hours long.
	start, end := WeekWindow(time.Date(2026, 10, 22, 12, 0, 0, 0, loc), loc)

	if start.Weekday() != time.Monday || start.Hour() != 0 {
		t.Errorf("unexpected start %s", start)
	}
	if end.Weekday() != time.Monday || end.Hour() != 0 {
		t.Errorf("unexpected end %s", end)
	}
	if got := end.Sub(start); got != 169*time.Hour {
		t.Errorf("expected 169h window, got %s", got)
	}
}

func TestStartOfWeek_NilLocation(t *testing.T) {
	got := StartOfWeek(time.Date(2026, 10, 14, 5, 0, 0, 0, time.UTC), nil)
	if got.Location() != time.UTC || got.Day() != 12 {
		t.Errorf("unexpected start %s", got)
	}
}
