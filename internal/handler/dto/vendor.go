package dto

import (
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// RegisterVendorRequest represents the request body for creating a vendor account.
type RegisterVendorRequest struct {
	Name         string `json:"name"`
	BusinessName string `json:"business_name,omitempty"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Timezone     string `json:"timezone,omitempty"`
}

// LoginRequest represents the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateVendorRequest represents a partial profile update.
type UpdateVendorRequest struct {
	Name         *string `json:"name,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
}

// VendorResponse represents a vendor account in API responses.
type VendorResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BusinessName string    `json:"business_name,omitempty"`
	Email        string    `json:"email"`
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginResponse carries an issued access token.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Vendor      *VendorResponse `json:"vendor"`
}

// ToVendorResponse converts a Vendor model to VendorResponse DTO.
// The password hash is never part of the response.
func ToVendorResponse(v *model.Vendor) *VendorResponse {
	return &VendorResponse{
		ID:           v.ID,
		Name:         v.Name,
		BusinessName: v.BusinessName,
		Email:        v.Email,
		Timezone:     v.Timezone,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}
