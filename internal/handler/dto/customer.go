package dto

import (
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// CreateCustomerRequest represents the request body for registering a customer.
type CreateCustomerRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// UpdateCustomerRequest represents a partial contact update. Empty strings clear a field.
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	ID         string     `json:"id"`
	VendorID   string     `json:"vendor_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	QRPayload  string     `json:"qr_payload"`
	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CustomerListResponse wraps a vendor's customers.
type CustomerListResponse struct {
	Data  []CustomerResponse `json:"data"`
	Count int                `json:"count"`
}

// ToCustomerResponse converts a Customer model to CustomerResponse DTO.
func ToCustomerResponse(c *model.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:         c.ID,
		VendorID:   c.VendorID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		QRPayload:  c.QRPayload,
		Archived:   c.IsArchived(),
		ArchivedAt: c.ArchivedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// ToCustomerListResponse converts a slice of Customer models.
func ToCustomerListResponse(customers []*model.Customer) *CustomerListResponse {
	data := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		data[i] = *ToCustomerResponse(c)
	}
	return &CustomerListResponse{Data: data, Count: len(data)}
}
