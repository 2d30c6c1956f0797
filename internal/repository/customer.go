package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

const customerColumns = `id, vendor_id, name, email, phone, qr_payload, created_at, updated_at, archived_at`

// CreateCustomer inserts a customer. An unknown vendor returns store.ErrNotFound.
func (r *Repository) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		customer.ID,
		customer.VendorID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.QRPayload,
		customer.CreatedAt,
		customer.UpdatedAt,
		customer.ArchivedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrDuplicate
		case isForeignKeyViolation(err):
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID regardless of vendor.
func (r *Repository) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if err := store.CheckCustomer(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCustomers returns all customers of a vendor, archived included, ordered by ID.
func (r *Repository) ListCustomers(ctx context.Context, vendorID string) ([]*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE vendor_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		if err := store.CheckCustomer(c); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}

// UpdateCustomer updates a customer's mutable fields.
// The vendor is part of the match so ownership can never change.
func (r *Repository) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	query := `
		UPDATE customers
		SET name = $3, email = $4, phone = $5, updated_at = $6, archived_at = $7
		WHERE id = $1 AND vendor_id = $2
	`

	result, err := r.pool.Exec(ctx, query,
		customer.ID,
		customer.VendorID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.UpdatedAt,
		customer.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(
		&c.ID,
		&c.VendorID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.QRPayload,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ArchivedAt,
	)
	return &c, err
}
