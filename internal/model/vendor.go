// Package model defines domain entities for the application.
package model

import "time"

// Vendor is the account that owns customers and issues punches.
type Vendor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BusinessName string    `json:"business_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Location returns the vendor's configured time zone.
// Falls back to the given location when the zone is empty or unknown.
func (v *Vendor) Location(fallback *time.Location) *time.Location {
	if v.Timezone != "" {
		if loc, err := time.LoadLocation(v.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// AuthContext holds the authenticated vendor identity for a request.
// It is injected into the request context by the auth middleware.
type AuthContext struct {
	VendorID string
	Email    string
	TokenID  string
}
