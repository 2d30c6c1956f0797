package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

const cardColumns = `id, vendor_id, customer_id, reward_threshold, cycle_start, redemptions, last_redeemed_at, created_at, updated_at`

// CreateCard inserts a loyalty card. A second card for the pair returns store.ErrDuplicate.
func (r *Repository) CreateCard(ctx context.Context, card *model.LoyaltyCard) error {
	query := `
		INSERT INTO loyalty_cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		card.ID,
		card.VendorID,
		card.CustomerID,
		card.RewardThreshold,
		card.CycleStart,
		card.Redemptions,
		card.LastRedeemedAt,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return store.ErrDuplicate
		case isForeignKeyViolation(err):
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetCard retrieves the pair's loyalty card.
func (r *Repository) GetCard(ctx context.Context, vendorID, customerID string) (*model.LoyaltyCard, error) {
	query := `SELECT ` + cardColumns + ` FROM loyalty_cards WHERE vendor_id = $1 AND customer_id = $2`

	c, err := scanCard(r.pool.QueryRow(ctx, query, vendorID, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if err := store.CheckCard(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCards returns the vendor's cards, newest first.
func (r *Repository) ListCards(ctx context.Context, vendorID string) ([]*model.LoyaltyCard, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM loyalty_cards
		WHERE vendor_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*model.LoyaltyCard, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if err := store.CheckCard(c); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

func scanCard(row pgx.Row) (*model.LoyaltyCard, error) {
	var c model.LoyaltyCard
	err := row.Scan(
		&c.ID,
		&c.VendorID,
		&c.CustomerID,
		&c.RewardThreshold,
		&c.CycleStart,
		&c.Redemptions,
		&c.LastRedeemedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return &c, err
}

// UpdateCard writes the card if redemptions still equals expectedRedemptions.
func (r *Repository) UpdateCard(ctx context.Context, card *model.LoyaltyCard, expectedRedemptions int) error {
	query := `
		UPDATE loyalty_cards
		SET reward_threshold = $3, cycle_start = $4, redemptions = $5, last_redeemed_at = $6, updated_at = $7
		WHERE vendor_id = $1 AND customer_id = $2 AND redemptions = $8
	`

	result, err := r.pool.Exec(ctx, query,
		card.VendorID,
		card.CustomerID,
		card.RewardThreshold,
		card.CycleStart,
		card.Redemptions,
		card.LastRedeemedAt,
		card.UpdatedAt,
		expectedRedemptions,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing card from a lost race.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM loyalty_cards WHERE vendor_id = $1 AND customer_id = $2)`,
		card.VendorID, card.CustomerID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check card: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}
