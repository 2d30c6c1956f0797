package mongo

import (
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// BSON dates keep milliseconds only. Instants that take part in ordering or
// range queries are stored as Unix microseconds instead.

type vendorModel struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	BusinessName string    `bson:"business_name"`
	Email        string    `bson:"email"`
	EmailLower   string    `bson:"email_lower"`
	PasswordHash string    `bson:"password_hash"`
	Timezone     string    `bson:"timezone"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toVendorModel(v *model.Vendor) *vendorModel {
	return &vendorModel{
		ID:           v.ID,
		Name:         v.Name,
		BusinessName: v.BusinessName,
		Email:        v.Email,
		EmailLower:   lower(v.Email),
		PasswordHash: v.PasswordHash,
		Timezone:     v.Timezone,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func fromVendorModel(m *vendorModel) *model.Vendor {
	return &model.Vendor{
		ID:           m.ID,
		Name:         m.Name,
		BusinessName: m.BusinessName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Timezone:     m.Timezone,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type customerModel struct {
	ID         string     `bson:"_id"`
	VendorID   string     `bson:"vendor_id"`
	Name       string     `bson:"name"`
	Email      string     `bson:"email"`
	Phone      string     `bson:"phone"`
	QRPayload  string     `bson:"qr_payload"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
	ArchivedAt *time.Time `bson:"archived_at,omitempty"`
}

func toCustomerModel(c *model.Customer) *customerModel {
	return &customerModel{
		ID:         c.ID,
		VendorID:   c.VendorID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		QRPayload:  c.QRPayload,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
		ArchivedAt: c.ArchivedAt,
	}
}

func fromCustomerModel(m *customerModel) *model.Customer {
	c := &model.Customer{
		ID:        m.ID,
		VendorID:  m.VendorID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		QRPayload: m.QRPayload,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.ArchivedAt != nil {
		t := m.ArchivedAt.UTC()
		c.ArchivedAt = &t
	}
	return c
}

type visitModel struct {
	ID             string    `bson:"_id"`
	Seq            int64     `bson:"seq"`
	VendorID       string    `bson:"vendor_id"`
	CustomerID     string    `bson:"customer_id"`
	VisitedAtUS    int64     `bson:"visited_at_us"`
	IdempotencyKey string    `bson:"idempotency_key,omitempty"`
	Source         string    `bson:"source"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toVisitModel(v *model.Visit) *visitModel {
	return &visitModel{
		ID:             v.ID,
		Seq:            v.Seq,
		VendorID:       v.VendorID,
		CustomerID:     v.CustomerID,
		VisitedAtUS:    v.Timestamp.UnixMicro(),
		IdempotencyKey: v.IdempotencyKey,
		Source:         string(v.Source),
		CreatedAt:      v.CreatedAt,
	}
}

func fromVisitModel(m *visitModel) *model.Visit {
	return &model.Visit{
		ID:             m.ID,
		Seq:            m.Seq,
		VendorID:       m.VendorID,
		CustomerID:     m.CustomerID,
		Timestamp:      time.UnixMicro(m.VisitedAtUS).UTC(),
		IdempotencyKey: m.IdempotencyKey,
		Source:         model.VisitSource(m.Source),
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

type cardModel struct {
	ID              string     `bson:"_id"`
	VendorID        string     `bson:"vendor_id"`
	CustomerID      string     `bson:"customer_id"`
	RewardThreshold int        `bson:"reward_threshold"`
	CycleStartUS    int64      `bson:"cycle_start_us"`
	Redemptions     int        `bson:"redemptions"`
	LastRedeemedAt  *time.Time `bson:"last_redeemed_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toCardModel(c *model.LoyaltyCard) *cardModel {
	return &cardModel{
		ID:              c.ID,
		VendorID:        c.VendorID,
		CustomerID:      c.CustomerID,
		RewardThreshold: c.RewardThreshold,
		CycleStartUS:    c.CycleStart.UnixMicro(),
		Redemptions:     c.Redemptions,
		LastRedeemedAt:  c.LastRedeemedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCardModel(m *cardModel) *model.LoyaltyCard {
	c := &model.LoyaltyCard{
		ID:              m.ID,
		VendorID:        m.VendorID,
		CustomerID:      m.CustomerID,
		RewardThreshold: m.RewardThreshold,
		CycleStart:      time.UnixMicro(m.CycleStartUS).UTC(),
		Redemptions:     m.Redemptions,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.LastRedeemedAt != nil {
		t := m.LastRedeemedAt.UTC()
		c.LastRedeemedAt = &t
	}
	return c
}
