package model

import "time"

// WeeklyReport aggregates one vendor's visits over a seven-day window.
// A repeat customer has two or more visits inside the window itself;
// visits before the window are not considered.
type WeeklyReport struct {
	VendorID        string    `json:"vendorId"`
	WeekStart       time.Time `json:"weekStart"`
	WeekEnd         time.Time `json:"weekEnd"` // Exclusive
	Timezone        string    `json:"timezone"`
	RepeatCount     int       `json:"repeatCount"`
	TotalVisits     int       `json:"totalVisits"`
	UniqueCustomers int       `json:"uniqueCustomers"`
}
