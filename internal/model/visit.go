package model

import (
	"cmp"
	"errors"
	"slices"
	"time"
)

// VisitSource records how a punch entered the ledger.
type VisitSource string

const (
	SourcePunch VisitSource = "punch"
	SourceScan  VisitSource = "scan"
)

// IsValid checks if the source is known.
func (s VisitSource) IsValid() bool {
	return s == SourcePunch || s == SourceScan
}

// Visit is an immutable record linking a customer to a vendor at a point in time.
type Visit struct {
	ID             string      `json:"id"` // ULID
	VendorID       string      `json:"vendor_id"`
	CustomerID     string      `json:"customer_id"`
	Timestamp      time.Time   `json:"timestamp"`
	Seq            int64       `json:"seq"` // Store-assigned insertion sequence
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	Source         VisitSource `json:"source"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Visit record validation errors.
var (
	ErrVisitMissingID       = errors.New("visit id is required")
	ErrVisitMissingVendor   = errors.New("visit vendor_id is required")
	ErrVisitMissingCustomer = errors.New("visit customer_id is required")
	ErrVisitZeroTimestamp   = errors.New("visit timestamp must be set")
	ErrVisitInvalidSource   = errors.New("visit source is invalid")
)

// Validate checks that all required fields of a stored visit are present.
func (v *Visit) Validate() error {
	switch {
	case v.ID == "":
		return ErrVisitMissingID
	case v.VendorID == "":
		return ErrVisitMissingVendor
	case v.CustomerID == "":
		return ErrVisitMissingCustomer
	case v.Timestamp.IsZero():
		return ErrVisitZeroTimestamp
	case !v.Source.IsValid():
		return ErrVisitInvalidSource
	}
	return nil
}

// InWindow reports whether the visit falls in the half-open window [since, until).
func (v *Visit) InWindow(since, until time.Time) bool {
	return !v.Timestamp.Before(since) && v.Timestamp.Before(until)
}

// NormalizeTimestamp converts t to UTC with microsecond precision,
// the resolution every store keeps.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// CompareVisits orders visits by timestamp, then insertion sequence.
func CompareVisits(a, b Visit) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// SortVisits sorts visits in ledger order.
func SortVisits(visits []Visit) {
	slices.SortStableFunc(visits, CompareVisits)
}
