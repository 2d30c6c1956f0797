package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

const vendorColumns = `id, name, business_name, email, password_hash, timezone, created_at, updated_at`

// CreateVendor inserts a vendor. A taken email returns store.ErrDuplicate.
func (r *Repository) CreateVendor(ctx context.Context, vendor *model.Vendor) error {
	query := `
		INSERT INTO vendors (` + vendorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		vendor.ID,
		vendor.Name,
		vendor.BusinessName,
		vendor.Email,
		vendor.PasswordHash,
		vendor.Timezone,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// GetVendor retrieves a vendor by ID.
func (r *Repository) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	return r.getVendor(ctx, query, id)
}

// GetVendorByEmail retrieves a vendor by email, case-insensitively.
func (r *Repository) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE lower(email) = lower($1)`
	return r.getVendor(ctx, query, email)
}

// UpdateVendor updates the vendor's profile fields. Email and credentials are not editable.
func (r *Repository) UpdateVendor(ctx context.Context, vendor *model.Vendor) error {
	query := `
		UPDATE vendors
		SET name = $2, business_name = $3, timezone = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		vendor.ID,
		vendor.Name,
		vendor.BusinessName,
		vendor.Timezone,
		vendor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) getVendor(ctx context.Context, query string, arg string) (*model.Vendor, error) {
	var v model.Vendor
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&v.ID,
		&v.Name,
		&v.BusinessName,
		&v.Email,
		&v.PasswordHash,
		&v.Timezone,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	if err := store.CheckVendor(&v); err != nil {
		return nil, err
	}
	return &v, nil
}
