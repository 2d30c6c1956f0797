// Package service provides vendor account and customer registry logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/punchcard/punchcard/internal/auth"
	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/metrics"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

// Service errors.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidTimezone    = errors.New("unknown timezone")
	ErrInvalidName        = errors.New("name must be 1-100 characters")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrVendorNotFound     = errors.New("vendor not found")
	ErrNoFields           = errors.New("no fields to update")
)

const (
	minPasswordLength = 8
	maxPasswordLength = 256
	maxNameLength     = 100
)

// VendorService handles vendor accounts.
type VendorService struct {
	options
	store           store.VendorStore
	hasher          *auth.PasswordHasher
	tokens          *auth.TokenIssuer
	defaultTimezone string
	logger          *slog.Logger
	metrics         metrics.Recorder

	// dummyHash is verified for unknown emails so both login failures cost the same.
	dummyHash string
}

// NewVendorService creates a new VendorService.
func NewVendorService(st store.VendorStore, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, defaultTimezone string, logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *VendorService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	dummy, _ := hasher.Hash("punchcard-dummy-password")
	return &VendorService{
		options:         newOptions(opts),
		store:           st,
		hasher:          hasher,
		tokens:          tokens,
		defaultTimezone: defaultTimezone,
		logger:          logger.With("component", "vendor_service"),
		metrics:         recorder,
		dummyHash:       dummy,
	}
}

// RegisterVendorInput defines input for creating a vendor account.
type RegisterVendorInput struct {
	Name         string
	BusinessName string
	Email        string
	Password     string
	Timezone     string // IANA name; empty means the service default
}

// Register creates a vendor account.
func (s *VendorService) Register(ctx context.Context, input RegisterVendorInput) (*model.Vendor, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	tz := input.Timezone
	if tz == "" {
		tz = s.defaultTimezone
	}
	if err := validateTimezone(tz); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.stamp()
	vendor := &model.Vendor{
		ID:           model.NewID(),
		Name:         name,
		BusinessName: strings.TrimSpace(input.BusinessName),
		Email:        email,
		PasswordHash: hash,
		Timezone:     tz,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.CreateVendor(sctx, vendor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, storeFailure("create vendor", err)
	}

	s.logger.Info("vendor registered", "vendor_id", vendor.ID)
	return vendor, nil
}

// LoginResult holds an issued access token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Vendor    *model.Vendor
}

// Login verifies credentials and issues an access token.
// Unknown email and wrong password return the same error.
func (s *VendorService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		s.metrics.IncLogin(false)
		return nil, ErrInvalidCredentials
	}

	sctx, cancel := s.storeCtx(ctx)
	vendor, err := s.store.GetVendorByEmail(sctx, normalized)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			s.metrics.IncLogin(false)
			return nil, ErrInvalidCredentials
		}
		return nil, storeFailure("get vendor", err)
	}

	ok, err := s.hasher.Verify(password, vendor.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unreadable", "vendor_id", vendor.ID, "error", err)
		s.metrics.IncLogin(false)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.metrics.IncLogin(false)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(vendor)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(true)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Vendor: vendor}, nil
}

// Profile returns the vendor's account.
func (s *VendorService) Profile(ctx context.Context, vendorID string) (*model.Vendor, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	vendor, err := s.store.GetVendor(sctx, vendorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, storeFailure("get vendor", err)
	}
	return vendor, nil
}

// UpdateVendorInput defines a partial profile update. Nil fields are unchanged.
type UpdateVendorInput struct {
	Name         *string
	BusinessName *string
	Timezone     *string
}

// UpdateProfile applies a partial update to the vendor's profile.
func (s *VendorService) UpdateProfile(ctx context.Context, vendorID string, input UpdateVendorInput) (*model.Vendor, error) {
	if input.Name == nil && input.BusinessName == nil && input.Timezone == nil {
		return nil, ErrNoFields
	}
	vendor, err := s.Profile(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return nil, err
		}
		vendor.Name = name
	}
	if input.BusinessName != nil {
		vendor.BusinessName = strings.TrimSpace(*input.BusinessName)
	}
	if input.Timezone != nil {
		if err := validateTimezone(*input.Timezone); err != nil {
			return nil, err
		}
		vendor.Timezone = *input.Timezone
	}
	vendor.UpdatedAt = s.stamp()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.UpdateVendor(sctx, vendor); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, storeFailure("update vendor", err)
	}
	return vendor, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func validateTimezone(tz string) error {
	if tz == "" || tz == "Local" {
		return ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}

// storeFailure wraps an unexpected store error as retryable.
func storeFailure(op string, err error) error {
	if store.IsDecodeError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ledger.ErrStoreUnavailable, op, err)
}
