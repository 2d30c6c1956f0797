// Package loyalty implements punch cards on top of the visit ledger.
//
// A card does not store punches. Progress is the number of ledger visits since
// the card's current cycle started, so the ledger stays the single record of
// visits. Only visits stamped at or before now count: a punch dated into the
// clock-skew allowance is picked up once its time arrives. Redeeming closes
// the cycle at that same instant and starts the next one there, so cycles
// never overlap and every punch belongs to exactly one of them.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/metrics"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

// Loyalty errors.
var (
	ErrInvalidThreshold = errors.New("reward threshold must be between 1 and 1000")
	ErrCardExists       = errors.New("customer already has a loyalty card")
	ErrCardNotFound     = errors.New("loyalty card not found")
	ErrNotEnoughPunches = errors.New("not enough punches to redeem")
	ErrRedeemConflict   = errors.New("card was redeemed concurrently")
)

// MaxRewardThreshold bounds the punches a card may require.
const MaxRewardThreshold = 1000

// Store is the persistence the service needs.
type Store interface {
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	store.CardStore
}

// Ledger is the part of the visit ledger used to compute progress.
type Ledger interface {
	CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error)
	Now() time.Time
}

// Service manages loyalty cards.
type Service struct {
	store        Store
	ledger       Ledger
	storeTimeout time.Duration
	logger       *slog.Logger
	metrics      metrics.Recorder
}

// NewService creates a loyalty Service.
func NewService(st Store, l Ledger, storeTimeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if storeTimeout <= 0 {
		storeTimeout = ledger.DefaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Service{
		store:        st,
		ledger:       l,
		storeTimeout: storeTimeout,
		logger:       logger.With("component", "loyalty"),
		metrics:      recorder,
	}
}

// CreateCard issues a card for the customer. Punches count from now on.
func (s *Service) CreateCard(ctx context.Context, vendorID, customerID string, threshold int) (*model.CardStatus, error) {
	if threshold < 1 || threshold > MaxRewardThreshold {
		return nil, ErrInvalidThreshold
	}

	customer, err := s.ownedCustomer(ctx, vendorID, customerID)
	if err != nil {
		return nil, err
	}
	if customer.IsArchived() {
		return nil, ledger.ErrNotFound
	}

	now := model.NormalizeTimestamp(s.ledger.Now())
	card := &model.LoyaltyCard{
		ID:              model.NewID(),
		VendorID:        vendorID,
		CustomerID:      customerID,
		RewardThreshold: threshold,
		CycleStart:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.CreateCard(sctx, card); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrCardExists
		}
		return nil, fmt.Errorf("%w: create card: %w", ledger.ErrStoreUnavailable, err)
	}

	s.logger.Info("loyalty card created",
		"vendor_id", vendorID,
		"customer_id", customerID,
		"threshold", threshold,
	)
	return &model.CardStatus{Card: card}, nil
}

// GetCard returns the card with its current progress.
func (s *Service) GetCard(ctx context.Context, vendorID, customerID string) (*model.CardStatus, error) {
	card, err := s.card(ctx, vendorID, customerID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, card, s.cycleEnd(card))
}

// ListCards returns every card of the vendor with its progress, newest first.
func (s *Service) ListCards(ctx context.Context, vendorID string) ([]*model.CardStatus, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	cards, err := s.store.ListCards(sctx, vendorID)
	cancel()
	if err != nil {
		if store.IsDecodeError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: list cards: %w", ledger.ErrStoreUnavailable, err)
	}

	out := make([]*model.CardStatus, 0, len(cards))
	for _, card := range cards {
		status, err := s.status(ctx, card, s.cycleEnd(card))
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

// Redeem consumes one reward and starts a new cycle.
func (s *Service) Redeem(ctx context.Context, vendorID, customerID string) (*model.CardStatus, error) {
	card, err := s.card(ctx, vendorID, customerID)
	if err != nil {
		return nil, err
	}
	end := s.cycleEnd(card)
	status, err := s.status(ctx, card, end)
	if err != nil {
		return nil, err
	}
	if !status.RewardReady {
		return nil, ErrNotEnoughPunches
	}

	now := model.NormalizeTimestamp(s.ledger.Now())
	prev := card.Redemptions
	card.Redemptions++
	card.CycleStart = end
	card.LastRedeemedAt = &now
	card.UpdatedAt = now

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.UpdateCard(sctx, card, prev); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrRedeemConflict
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("%w: update card: %w", ledger.ErrStoreUnavailable, err)
	}

	s.metrics.IncRewardRedeemed()
	s.logger.Info("reward redeemed",
		"vendor_id", vendorID,
		"customer_id", customerID,
		"redemptions", card.Redemptions,
	)
	return &model.CardStatus{Card: card}, nil
}

func (s *Service) card(ctx context.Context, vendorID, customerID string) (*model.LoyaltyCard, error) {
	if _, err := s.ownedCustomer(ctx, vendorID, customerID); err != nil {
		return nil, err
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	card, err := s.store.GetCard(sctx, vendorID, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		if store.IsDecodeError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get card: %w", ledger.ErrStoreUnavailable, err)
	}
	return card, nil
}

// cycleEnd is the exclusive end of the current cycle: one microsecond past now,
// never before CycleStart.
func (s *Service) cycleEnd(card *model.LoyaltyCard) time.Time {
	end := model.NormalizeTimestamp(s.ledger.Now()).Add(time.Microsecond)
	if end.Before(card.CycleStart) {
		return card.CycleStart
	}
	return end
}

// status counts punches in [CycleStart, end).
func (s *Service) status(ctx context.Context, card *model.LoyaltyCard, end time.Time) (*model.CardStatus, error) {
	punches, err := s.ledger.CountVisits(ctx, card.VendorID, card.CustomerID, card.CycleStart, end)
	if err != nil {
		return nil, err
	}
	return &model.CardStatus{
		Card:        card,
		Punches:     punches,
		RewardReady: punches >= card.RewardThreshold,
	}, nil
}

// ownedCustomer returns ledger.ErrNotFound for unknown customers and
// ledger.ErrNotAuthorized for another vendor's customer.
func (s *Service) ownedCustomer(ctx context.Context, vendorID, customerID string) (*model.Customer, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	customer, err := s.store.GetCustomer(sctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get customer: %w", ledger.ErrStoreUnavailable, err)
	}
	if !customer.BelongsTo(vendorID) {
		return nil, ledger.ErrNotAuthorized
	}
	return customer, nil
}
