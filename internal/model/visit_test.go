package model

import (
	"errors"
	"testing"
	"time"
)

func TestVisit_Validate(t *testing.T) {
	valid := Visit{
		ID:         "v1",
		VendorID:   "vendor",
		CustomerID: "cust",
		Timestamp:  time.Now(),
		Source:     SourcePunch,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid visit, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(v *Visit)
		want   error
	}{
		{"missing id", func(v *Visit) { v.ID = "" }, ErrVisitMissingID},
		{"missing vendor", func(v *Visit) { v.VendorID = "" }, ErrVisitMissingVendor},
		{"missing customer", func(v *Visit) { v.CustomerID = "" }, ErrVisitMissingCustomer},
		{"zero timestamp", func(v *Visit) { v.Timestamp = time.Time{} }, ErrVisitZeroTimestamp},
		{"bad source", func(v *Visit) { v.Source = "fax" }, ErrVisitInvalidSource},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			tt.mutate(&v)
			if err := v.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVisit_InWindowIsHalfOpen(t *testing.T) {
	since := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	atStart := Visit{Timestamp: since}
	atEnd := Visit{Timestamp: until}
	inside := Visit{Timestamp: since.Add(time.Hour)}

	if !atStart.InWindow(since, until) {
		t.Error("visit at since should be inside the window")
	}
	if atEnd.InWindow(since, until) {
		t.Error("visit at until should be outside the window")
	}
	if !inside.InWindow(since, until) {
		t.Error("visit inside should be inside the window")
	}
}

func TestSortVisits_TiesBrokenBySeq(t *testing.T) {
	ts := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	visits := []Visit{
		{ID: "c", Timestamp: ts, Seq: 3},
		{ID: "late", Timestamp: ts.Add(time.Minute), Seq: 1},
		{ID: "a", Timestamp: ts, Seq: 1},
		{ID: "b", Timestamp: ts, Seq: 2},
	}

	SortVisits(visits)

	want := []string{"a", "b", "c", "late"}
	for i, id := range want {
		if visits[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, visits[i].ID)
		}
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	in := time.Date(2026, 10, 12, 9, 0, 0, 123456789, loc)

	got := NormalizeTimestamp(in)

	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %s", got.Location())
	}
	if got.Nanosecond() != 123456000 {
		t.Errorf("expected microsecond truncation, got %d ns", got.Nanosecond())
	}
	if !got.Equal(in.Truncate(time.Microsecond)) {
		t.Error("normalization must not move the instant")
	}
}

func TestVendor_LocationFallback(t *testing.T) {
	v := &Vendor{Timezone: "Not/AZone"}
	if loc := v.Location(time.UTC); loc != time.UTC {
		t.Errorf("expected fallback UTC, got %s", loc)
	}

	v.Timezone = "Asia/Ho_Chi_Minh"
	if loc := v.Location(time.UTC); loc.String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("expected Asia/Ho_Chi_Minh, got %s", loc)
	}
}

func TestNewID_Monotonic(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		if next <= prev {
			t.Fatalf("expected increasing ids, got %s after %s", next, prev)
		}
		if !IsULID(next) {
			t.Fatalf("expected ULID, got %s", next)
		}
		prev = next
	}
}
