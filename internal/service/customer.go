package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/metrics"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

const maxPhoneLength = 32

// CustomerService manages the vendor's customer registry.
// Customers of another vendor are reported with ledger.ErrNotAuthorized and
// unknown customers with ledger.ErrNotFound, the same kinds the ledger uses.
type CustomerService struct {
	options
	store   store.CustomerStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(st store.CustomerStore, logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *CustomerService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CustomerService{
		options: newOptions(opts),
		store:   st,
		logger:  logger.With("component", "customer_service"),
		metrics: recorder,
	}
}

// CustomerInput holds customer contact fields. Nil fields are unchanged on update.
type CustomerInput struct {
	Name  *string
	Email *string
	Phone *string
}

func (in CustomerInput) empty() bool {
	return in.Name == nil && in.Email == nil && in.Phone == nil
}

// Register adds a customer to the vendor's registry and assigns its QR payload.
func (s *CustomerService) Register(ctx context.Context, vendorID string, input CustomerInput) (*model.Customer, error) {
	now := s.stamp()
	customer := &model.Customer{
		ID:        model.NewID(),
		VendorID:  vendorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Name == nil {
		return nil, ErrInvalidName
	}
	if err := applyCustomerInput(customer, input); err != nil {
		return nil, err
	}
	customer.QRPayload = model.QRPayload{CustomerID: customer.ID, VendorID: vendorID}.String()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.CreateCustomer(sctx, customer); err != nil {
		return nil, storeFailure("create customer", err)
	}

	s.metrics.IncCustomerRegistered()
	s.logger.Info("customer registered", "vendor_id", vendorID, "customer_id", customer.ID)
	return customer, nil
}

// List returns the vendor's customers. Archived customers are included on request.
func (s *CustomerService) List(ctx context.Context, vendorID string, includeArchived bool) ([]*model.Customer, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	all, err := s.store.ListCustomers(sctx, vendorID)
	if err != nil {
		return nil, storeFailure("list customers", err)
	}
	if includeArchived {
		return all, nil
	}

	active := make([]*model.Customer, 0, len(all))
	for _, c := range all {
		if !c.IsArchived() {
			active = append(active, c)
		}
	}
	return active, nil
}

// Get returns one of the vendor's customers, archived ones included.
func (s *CustomerService) Get(ctx context.Context, vendorID, customerID string) (*model.Customer, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	customer, err := s.store.GetCustomer(sctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, storeFailure("get customer", err)
	}
	if !customer.BelongsTo(vendorID) {
		return nil, ledger.ErrNotAuthorized
	}
	return customer, nil
}

// Update changes contact fields of an active customer.
// An input with no fields set returns ErrNoFields.
func (s *CustomerService) Update(ctx context.Context, vendorID, customerID string, input CustomerInput) (*model.Customer, error) {
	if input.empty() {
		return nil, ErrNoFields
	}
	customer, err := s.active(ctx, vendorID, customerID)
	if err != nil {
		return nil, err
	}
	if err := applyCustomerInput(customer, input); err != nil {
		return nil, err
	}
	customer.UpdatedAt = s.stamp()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.UpdateCustomer(sctx, customer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, storeFailure("update customer", err)
	}
	return customer, nil
}

// Archive closes the customer. Visit history is kept; new punches are rejected.
func (s *CustomerService) Archive(ctx context.Context, vendorID, customerID string) error {
	customer, err := s.active(ctx, vendorID, customerID)
	if err != nil {
		return err
	}
	now := s.stamp()
	customer.ArchivedAt = &now
	customer.UpdatedAt = now

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.UpdateCustomer(sctx, customer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ledger.ErrNotFound
		}
		return storeFailure("archive customer", err)
	}

	s.logger.Info("customer archived", "vendor_id", vendorID, "customer_id", customerID)
	return nil
}

// ResolveQR decodes a scanned payload and checks it was issued by vendorID.
func (s *CustomerService) ResolveQR(ctx context.Context, vendorID, raw string) (*model.Customer, error) {
	payload, err := model.ParseQRPayload(raw)
	if err != nil {
		return nil, err
	}
	if payload.VendorID != vendorID {
		return nil, ledger.ErrNotAuthorized
	}
	return s.Get(ctx, vendorID, payload.CustomerID)
}

func (s *CustomerService) active(ctx context.Context, vendorID, customerID string) (*model.Customer, error) {
	customer, err := s.Get(ctx, vendorID, customerID)
	if err != nil {
		return nil, err
	}
	if customer.IsArchived() {
		return nil, ledger.ErrNotFound
	}
	return customer, nil
}

func applyCustomerInput(c *model.Customer, input CustomerInput) error {
	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return err
		}
		c.Name = name
	}
	if input.Email != nil {
		c.Email = ""
		if email := strings.TrimSpace(*input.Email); email != "" {
			normalized, err := normalizeEmail(email)
			if err != nil {
				return err
			}
			c.Email = normalized
		}
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if !validPhone(phone) {
			return ErrInvalidPhone
		}
		c.Phone = phone
	}
	return nil
}

// validPhone accepts digits with optional leading + and common separators.
func validPhone(phone string) bool {
	if phone == "" {
		return true
	}
	if len(phone) > maxPhoneLength {
		return false
	}
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 6
}
