// Package store defines the persistence boundary shared by every storage engine.
package store

import (
	"context"
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// Store is the persistence collaborator consumed by the ledger, analytics and services.
// Implementations decode into typed records and return *DecodeError for malformed ones.
type Store interface {
	VendorStore
	CustomerStore
	VisitStore
	CardStore

	Ping(ctx context.Context) error
	Close()
}

// VendorStore persists vendor accounts.
type VendorStore interface {
	// CreateVendor returns ErrDuplicate if the email is taken.
	CreateVendor(ctx context.Context, vendor *model.Vendor) error
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
	GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error)
	UpdateVendor(ctx context.Context, vendor *model.Vendor) error
}

// CustomerStore persists customers keyed by (vendor, customer).
type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *model.Customer) error
	// GetCustomer looks up by id alone so callers can tell "unknown" from "owned by another vendor".
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	// ListCustomers returns every customer of the vendor, archived included, ordered by id.
	ListCustomers(ctx context.Context, vendorID string) ([]*model.Customer, error)
	UpdateCustomer(ctx context.Context, customer *model.Customer) error
}

// VisitStore is the append-only visit log.
type VisitStore interface {
	// AppendVisit atomically inserts the visit and assigns its Seq.
	// When the visit carries an idempotency key already used by the vendor,
	// nothing is written and the existing visit is returned with created=false.
	AppendVisit(ctx context.Context, visit *model.Visit) (stored *model.Visit, created bool, err error)
	// ListVisits returns the pair's visits ordered by (Timestamp, Seq).
	ListVisits(ctx context.Context, vendorID, customerID string) ([]model.Visit, error)
	// CountVisits counts the pair's visits in [since, until).
	CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error)
}

// CardStore persists loyalty cards, one per (vendor, customer).
type CardStore interface {
	// CreateCard returns ErrDuplicate if the pair already has a card.
	CreateCard(ctx context.Context, card *model.LoyaltyCard) error
	GetCard(ctx context.Context, vendorID, customerID string) (*model.LoyaltyCard, error)
	// ListCards returns the vendor's cards, newest first.
	ListCards(ctx context.Context, vendorID string) ([]*model.LoyaltyCard, error)
	// UpdateCard writes the card only if the stored Redemptions still equals
	// expectedRedemptions, returning ErrConflict otherwise.
	UpdateCard(ctx context.Context, card *model.LoyaltyCard, expectedRedemptions int) error
}
