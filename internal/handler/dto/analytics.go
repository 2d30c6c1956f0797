package dto

import (
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// WeeklyReportResponse is the weekly repeat-customer report.
type WeeklyReportResponse struct {
	VendorID        string    `json:"vendorId"`
	RepeatCount     int       `json:"repeatCount"`
	TotalVisits     int       `json:"totalVisits"`
	UniqueCustomers int       `json:"uniqueCustomers"`
	WeekStart       time.Time `json:"weekStart"`
	WeekEnd         time.Time `json:"weekEnd"`
	Timezone        string    `json:"timezone"`
}

// RepeatsResponse answers a repeat-customer query over an arbitrary window.
type RepeatsResponse struct {
	VendorID    string    `json:"vendorId"`
	Since       time.Time `json:"since"`
	Until       time.Time `json:"until"`
	RepeatCount int       `json:"repeatCount"`
}

// ToWeeklyReportResponse converts a WeeklyReport model.
func ToWeeklyReportResponse(r *model.WeeklyReport) *WeeklyReportResponse {
	return &WeeklyReportResponse{
		VendorID:        r.VendorID,
		RepeatCount:     r.RepeatCount,
		TotalVisits:     r.TotalVisits,
		UniqueCustomers: r.UniqueCustomers,
		WeekStart:       r.WeekStart,
		WeekEnd:         r.WeekEnd,
		Timezone:        r.Timezone,
	}
}
