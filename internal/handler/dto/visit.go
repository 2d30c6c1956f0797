package dto

import (
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// PunchRequest is the optional body of a punch. Timestamp is RFC 3339;
// empty means now.
type PunchRequest struct {
	Timestamp      string `json:"timestamp,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ScanRequest records a visit from a scanned QR payload.
type ScanRequest struct {
	Payload        string `json:"payload"`
	Timestamp      string `json:"timestamp,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// VisitResponse represents a ledger entry in API responses.
type VisitResponse struct {
	VisitID        string    `json:"visit_id"`
	VendorID       string    `json:"vendor_id"`
	CustomerID     string    `json:"customer_id"`
	Timestamp      time.Time `json:"timestamp"`
	Seq            int64     `json:"seq"`
	Source         string    `json:"source"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Replayed       bool      `json:"replayed,omitempty"`
}

// VisitListResponse is a customer's visit history, oldest first.
type VisitListResponse struct {
	CustomerID string          `json:"customer_id"`
	Data       []VisitResponse `json:"data"`
	Count      int             `json:"count"`
}

// VisitCountResponse answers a windowed count.
type VisitCountResponse struct {
	CustomerID string    `json:"customer_id"`
	Since      time.Time `json:"since"`
	Until      time.Time `json:"until"`
	Count      int       `json:"count"`
}

// ToVisitResponse converts a Visit model to VisitResponse DTO.
func ToVisitResponse(v *model.Visit, replayed bool) *VisitResponse {
	return &VisitResponse{
		VisitID:        v.ID,
		VendorID:       v.VendorID,
		CustomerID:     v.CustomerID,
		Timestamp:      v.Timestamp,
		Seq:            v.Seq,
		Source:         string(v.Source),
		IdempotencyKey: v.IdempotencyKey,
		CreatedAt:      v.CreatedAt,
		Replayed:       replayed,
	}
}

// ToVisitListResponse converts a visit history.
func ToVisitListResponse(customerID string, visits []model.Visit) *VisitListResponse {
	data := make([]VisitResponse, len(visits))
	for i := range visits {
		data[i] = *ToVisitResponse(&visits[i], false)
	}
	return &VisitListResponse{CustomerID: customerID, Data: data, Count: len(data)}
}
