package model

import "time"

// Customer belongs to exactly one vendor. Customers are never shared.
type Customer struct {
	ID         string     `json:"id"`
	VendorID   string     `json:"vendor_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	QRPayload  string     `json:"qr_payload"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// IsArchived returns true if the customer has been closed by its vendor.
// Archived customers keep their visit history but cannot be punched.
func (c *Customer) IsArchived() bool {
	return c.ArchivedAt != nil
}

// BelongsTo reports whether the customer is owned by vendorID.
func (c *Customer) BelongsTo(vendorID string) bool {
	return c.VendorID == vendorID
}
