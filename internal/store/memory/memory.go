// Package memory provides an in-process store for tests and local development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

type pairKey struct {
	vendorID   string
	customerID string
}

type idemKey struct {
	vendorID string
	key      string
}

// Store keeps all records in maps guarded by a single RWMutex.
// The lock is held only for map and slice updates, never across I/O.
type Store struct {
	mu sync.RWMutex

	vendors       map[string]model.Vendor
	vendorByEmail map[string]string
	customers     map[string]model.Customer
	visits        map[pairKey][]model.Visit
	idempotency   map[idemKey]model.Visit
	cards         map[pairKey]model.LoyaltyCard
	seq           int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		vendors:       make(map[string]model.Vendor),
		vendorByEmail: make(map[string]string),
		customers:     make(map[string]model.Customer),
		visits:        make(map[pairKey][]model.Visit),
		idempotency:   make(map[idemKey]model.Visit),
		cards:         make(map[pairKey]model.LoyaltyCard),
	}
}

// Ping always succeeds unless the context is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() {}

// ========== Vendors ==========

func (s *Store) CreateVendor(ctx context.Context, vendor *model.Vendor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := strings.ToLower(vendor.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vendors[vendor.ID]; ok {
		return store.ErrDuplicate
	}
	if _, ok := s.vendorByEmail[email]; ok {
		return store.ErrDuplicate
	}
	s.vendors[vendor.ID] = *vendor
	s.vendorByEmail[email] = vendor.ID
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vendors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.vendorByEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := s.vendors[id]
	return &v, nil
}

func (s *Store) UpdateVendor(ctx context.Context, vendor *model.Vendor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.vendors[vendor.ID]
	if !ok {
		return store.ErrNotFound
	}
	// Email and credentials are not editable through updates.
	existing.Name = vendor.Name
	existing.BusinessName = vendor.BusinessName
	existing.Timezone = vendor.Timezone
	existing.UpdatedAt = vendor.UpdatedAt
	s.vendors[vendor.ID] = existing
	return nil
}

// ========== Customers ==========

func (s *Store) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.ID]; ok {
		return store.ErrDuplicate
	}
	s.customers[customer.ID] = cloneCustomer(*customer)
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = cloneCustomer(c)
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, vendorID string) ([]*model.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*model.Customer, 0)
	for _, c := range s.customers {
		c := c
		if c.VendorID == vendorID {
			c = cloneCustomer(c)
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	sortCustomers(out)
	return out, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok || existing.VendorID != customer.VendorID {
		return store.ErrNotFound
	}
	s.customers[customer.ID] = cloneCustomer(*customer)
	return nil
}

// ========== Visits ==========

func (s *Store) AppendVisit(ctx context.Context, visit *model.Visit) (*model.Visit, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if visit.IdempotencyKey != "" {
		if existing, ok := s.idempotency[idemKey{visit.VendorID, visit.IdempotencyKey}]; ok {
			return &existing, false, nil
		}
	}

	s.seq++
	stored := *visit
	stored.Seq = s.seq

	key := pairKey{visit.VendorID, visit.CustomerID}
	s.visits[key] = insertOrdered(s.visits[key], stored)
	if stored.IdempotencyKey != "" {
		s.idempotency[idemKey{stored.VendorID, stored.IdempotencyKey}] = stored
	}
	return &stored, true, nil
}

func (s *Store) ListVisits(ctx context.Context, vendorID, customerID string) ([]model.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	visits := s.visits[pairKey{vendorID, customerID}]
	out := make([]model.Visit, len(visits))
	copy(out, visits)
	return out, nil
}

func (s *Store) CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	visits := s.visits[pairKey{vendorID, customerID}]
	count := 0
	for i := range visits {
		if visits[i].InWindow(since, until) {
			count++
		}
	}
	return count, nil
}

// ========== Loyalty cards ==========

func (s *Store) CreateCard(ctx context.Context, card *model.LoyaltyCard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{card.VendorID, card.CustomerID}
	if _, ok := s.cards[key]; ok {
		return store.ErrDuplicate
	}
	s.cards[key] = cloneCard(*card)
	return nil
}

func (s *Store) GetCard(ctx context.Context, vendorID, customerID string) (*model.LoyaltyCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[pairKey{vendorID, customerID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = cloneCard(c)
	return &c, nil
}

func (s *Store) ListCards(ctx context.Context, vendorID string) ([]*model.LoyaltyCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*model.LoyaltyCard, 0)
	for key, c := range s.cards {
		c := c
		if key.vendorID == vendorID {
			c = cloneCard(c)
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	sortCardsNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateCard(ctx context.Context, card *model.LoyaltyCard, expectedRedemptions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{card.VendorID, card.CustomerID}
	existing, ok := s.cards[key]
	if !ok {
		return store.ErrNotFound
	}
	if existing.Redemptions != expectedRedemptions {
		return store.ErrConflict
	}
	s.cards[key] = cloneCard(*card)
	return nil
}
