package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchcard/punchcard/internal/auth"
	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/metrics"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
	"github.com/punchcard/punchcard/internal/store/memory"
)

func newVendorService(t *testing.T) (*VendorService, *metrics.InMemoryRecorder) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(auth.PasswordParams{Time: 1, Memory: 8 * 1024, Threads: 1})
	rec := metrics.NewInMemory()
	return NewVendorService(memory.New(), hasher, tokens, "UTC", nil, rec), rec
}

func validRegistration() RegisterVendorInput {
	return RegisterVendorInput{
		Name:         "Ana",
		BusinessName: "Ana's Coffee",
		Email:        "Ana@Coffee.test",
		Password:     "long-enough-password",
		Timezone:     "Europe/Lisbon",
	}
}

func TestVendorService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, rec := newVendorService(t)

	vendor, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "ana@coffee.test", vendor.Email)
	assert.Equal(t, "Europe/Lisbon", vendor.Timezone)
	assert.NotEmpty(t, vendor.PasswordHash)
	assert.NotEqual(t, "long-enough-password", vendor.PasswordHash)

	res, err := svc.Login(ctx, "ana@coffee.test", "long-enough-password")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, vendor.ID, res.Vendor.ID)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	assert.EqualValues(t, 1, rec.Snapshot().LoginsSucceeded)
}

func TestVendorService_RegisterDefaultsTimezone(t *testing.T) {
	svc, _ := newVendorService(t)
	in := validRegistration()
	in.Timezone = ""

	vendor, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "UTC", vendor.Timezone)
}

func TestVendorService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RegisterVendorInput)
		wantErr error
	}{
		{"blank name", func(in *RegisterVendorInput) { in.Name = "  " }, ErrInvalidName},
		{"bad email", func(in *RegisterVendorInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"display name email", func(in *RegisterVendorInput) { in.Email = "Ana <ana@coffee.test>" }, ErrInvalidEmail},
		{"short password", func(in *RegisterVendorInput) { in.Password = "short" }, ErrWeakPassword},
		{"bad timezone", func(in *RegisterVendorInput) { in.Timezone = "Mars/Olympus" }, ErrInvalidTimezone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newVendorService(t)
			in := validRegistration()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVendorService_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newVendorService(t)

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	in := validRegistration()
	in.Email = "ANA@coffee.test"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestVendorService_LoginFailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	svc, rec := newVendorService(t)

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@coffee.test", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@coffee.test", "long-enough-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "garbage", "long-enough-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.EqualValues(t, 3, rec.Snapshot().LoginsFailed)
}

func TestVendorService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newVendorService(t)

	vendor, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	tz := "Asia/Tokyo"
	business := "Ana's Tea"
	updated, err := svc.UpdateProfile(ctx, vendor.ID, UpdateVendorInput{Timezone: &tz, BusinessName: &business})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", updated.Timezone)
	assert.Equal(t, "Ana's Tea", updated.BusinessName)
	assert.Equal(t, "Ana", updated.Name)

	bad := "Nowhere/Land"
	_, err = svc.UpdateProfile(ctx, vendor.ID, UpdateVendorInput{Timezone: &bad})
	assert.ErrorIs(t, err, ErrInvalidTimezone)

	profile, err := svc.Profile(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", profile.Timezone)

	_, err = svc.UpdateProfile(ctx, vendor.ID, UpdateVendorInput{})
	assert.ErrorIs(t, err, ErrNoFields)

	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, ErrVendorNotFound)
}

func TestVendorService_ProfileLookupIsBounded(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(auth.PasswordParams{Time: 1, Memory: 8 * 1024, Threads: 1})
	st := &stalledVendors{VendorStore: memory.New()}
	svc := NewVendorService(st, hasher, tokens, "UTC", nil, nil, WithStoreTimeout(10*time.Millisecond))

	_, err = svc.Profile(context.Background(), "v1")
	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// stalledVendors blocks GetVendor until its context is done.
type stalledVendors struct {
	store.VendorStore
}

func (s *stalledVendors) GetVendor(ctx context.Context, _ string) (*model.Vendor, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
