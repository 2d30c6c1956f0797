package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

const visitColumns = `seq, id, vendor_id, customer_id, visited_at, COALESCE(idempotency_key, ''), source, created_at`

// AppendVisit inserts a visit in a single statement. The BIGSERIAL seq is
// assigned by the insert. When the vendor already used the idempotency key,
// the insert is skipped and the existing visit is returned.
func (r *Repository) AppendVisit(ctx context.Context, visit *model.Visit) (*model.Visit, bool, error) {
	query := `
		INSERT INTO visits (id, vendor_id, customer_id, visited_at, idempotency_key, source, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		ON CONFLICT (vendor_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING seq
	`

	var seq int64
	err := r.pool.QueryRow(ctx, query,
		visit.ID,
		visit.VendorID,
		visit.CustomerID,
		visit.Timestamp,
		visit.IdempotencyKey,
		string(visit.Source),
		visit.CreatedAt,
	).Scan(&seq)

	switch {
	case err == nil:
		stored := *visit
		stored.Seq = seq
		return &stored, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Conflict on the idempotency key.
		existing, err := r.visitByIdempotencyKey(ctx, visit.VendorID, visit.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case isForeignKeyViolation(err):
		return nil, false, store.ErrNotFound
	default:
		return nil, false, fmt.Errorf("failed to append visit: %w", err)
	}
}

// ListVisits returns the pair's visits ordered by (visited_at, seq).
func (r *Repository) ListVisits(ctx context.Context, vendorID, customerID string) ([]model.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE vendor_id = $1 AND customer_id = $2
		ORDER BY visited_at, seq
	`

	rows, err := r.pool.Query(ctx, query, vendorID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	visits := make([]model.Visit, 0)
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		if err := store.CheckVisit(v, vendorID); err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visits: %w", err)
	}
	return visits, nil
}

// CountVisits counts the pair's visits in [since, until).
func (r *Repository) CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM visits
		WHERE vendor_id = $1 AND customer_id = $2
		  AND visited_at >= $3 AND visited_at < $4
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, vendorID, customerID, since, until).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

func (r *Repository) visitByIdempotencyKey(ctx context.Context, vendorID, key string) (*model.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE vendor_id = $1 AND idempotency_key = $2`

	v, err := scanVisit(r.pool.QueryRow(ctx, query, vendorID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get visit by idempotency key: %w", err)
	}
	if err := store.CheckVisit(v, vendorID); err != nil {
		return nil, err
	}
	return v, nil
}

func scanVisit(row pgx.Row) (*model.Visit, error) {
	var v model.Visit
	var source string
	err := row.Scan(
		&v.Seq,
		&v.ID,
		&v.VendorID,
		&v.CustomerID,
		&v.Timestamp,
		&v.IdempotencyKey,
		&source,
		&v.CreatedAt,
	)
	v.Source = model.VisitSource(source)
	v.Timestamp = v.Timestamp.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, err
}
