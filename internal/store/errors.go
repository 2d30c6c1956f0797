package store

import (
	"errors"
	"fmt"

	"github.com/punchcard/punchcard/internal/model"
)

// Store errors shared by all engines.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrConflict  = errors.New("record was modified concurrently")
)

// DecodeError reports a persisted record that does not match its typed shape.
type DecodeError struct {
	Kind string // vendor, customer, visit, card
	ID   string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed %s record: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("malformed %s record %s: %v", e.Kind, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Decode error causes.
var (
	errMissingID        = errors.New("missing id")
	errMissingVendor    = errors.New("missing vendor_id")
	errMissingEmail     = errors.New("missing email")
	errZeroTimestamp    = errors.New("zero created_at")
	errInvalidThreshold = errors.New("reward_threshold must be positive")
)

// CheckVendor validates a decoded vendor.
func CheckVendor(v *model.Vendor) error {
	switch {
	case v.ID == "":
		return &DecodeError{Kind: "vendor", Err: errMissingID}
	case v.Email == "":
		return &DecodeError{Kind: "vendor", ID: v.ID, Err: errMissingEmail}
	case v.CreatedAt.IsZero():
		return &DecodeError{Kind: "vendor", ID: v.ID, Err: errZeroTimestamp}
	}
	return nil
}

// CheckCustomer validates a decoded customer.
func CheckCustomer(c *model.Customer) error {
	switch {
	case c.ID == "":
		return &DecodeError{Kind: "customer", Err: errMissingID}
	case c.VendorID == "":
		return &DecodeError{Kind: "customer", ID: c.ID, Err: errMissingVendor}
	case c.CreatedAt.IsZero():
		return &DecodeError{Kind: "customer", ID: c.ID, Err: errZeroTimestamp}
	}
	return nil
}

// CheckVisit validates a decoded visit against the pair it was read for.
// An empty vendorID skips the ownership check.
func CheckVisit(v *model.Visit, vendorID string) error {
	if err := v.Validate(); err != nil {
		return &DecodeError{Kind: "visit", ID: v.ID, Err: err}
	}
	if vendorID != "" && v.VendorID != vendorID {
		return &DecodeError{Kind: "visit", ID: v.ID, Err: fmt.Errorf("vendor_id %q does not match %q", v.VendorID, vendorID)}
	}
	return nil
}

// CheckCard validates a decoded loyalty card.
func CheckCard(c *model.LoyaltyCard) error {
	switch {
	case c.ID == "":
		return &DecodeError{Kind: "card", Err: errMissingID}
	case c.VendorID == "":
		return &DecodeError{Kind: "card", ID: c.ID, Err: errMissingVendor}
	case c.RewardThreshold < 1:
		return &DecodeError{Kind: "card", ID: c.ID, Err: errInvalidThreshold}
	}
	return nil
}
