// Package ledger records punch events and exposes per-customer visit history.
//
// The ledger is append-only: visits are never mutated or deleted. Ordering
// within a (vendor, customer) pair is by timestamp, ties broken by the
// store-assigned insertion sequence.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/punchcard/punchcard/internal/metrics"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/store"
)

const maxIdempotencyKeyLength = 128

// minTimestamp rejects zero-ish and pre-epoch timestamps from broken clients.
var minTimestamp = time.Unix(0, 0).UTC()

// Store is the subset of store.Store the ledger needs.
type Store interface {
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	store.VisitStore
}

// Ledger is the visit ledger. It is safe for concurrent use.
type Ledger struct {
	store        Store
	now          func() time.Time
	skew         time.Duration
	storeTimeout time.Duration
	logger       *slog.Logger
	metrics      metrics.Recorder
}

// New creates a Ledger backed by st.
func New(st Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        st,
		now:          time.Now,
		skew:         DefaultClockSkew,
		storeTimeout: DefaultStoreTimeout,
		logger:       slog.Default(),
		metrics:      metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ledger")
	return l
}

// RecordRequest describes one punch.
type RecordRequest struct {
	VendorID   string
	CustomerID string
	// Timestamp of the visit. Zero means now.
	Timestamp time.Time
	// IdempotencyKey is optional. Without it retries create duplicate visits.
	IdempotencyKey string
	Source         model.VisitSource
}

// RecordResult is the outcome of Record.
type RecordResult struct {
	Visit *model.Visit
	// Replayed is true when the idempotency key matched an earlier visit
	// and nothing was written.
	Replayed bool
}

// RecordVisit appends a visit and returns its id.
func (l *Ledger) RecordVisit(ctx context.Context, vendorID, customerID string, timestamp time.Time) (string, error) {
	res, err := l.Record(ctx, RecordRequest{
		VendorID:   vendorID,
		CustomerID: customerID,
		Timestamp:  timestamp,
	})
	if err != nil {
		return "", err
	}
	return res.Visit.ID, nil
}

// Record appends a visit for the pair.
func (l *Ledger) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	start := time.Now()
	defer func() {
		l.metrics.ObserveRecordDuration(time.Since(start))
	}()

	source := req.Source
	if source == "" {
		source = model.SourcePunch
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("record visit: %w", model.ErrVisitInvalidSource)
	}
	if err := validateIdempotencyKey(req.IdempotencyKey); err != nil {
		return nil, err
	}

	now := l.now()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}
	if ts.Before(minTimestamp) {
		l.metrics.IncVisitRejected(metrics.RejectInvalidTimestamp)
		return nil, fmt.Errorf("%w: %s is before the epoch", ErrInvalidTimestamp, ts.Format(time.RFC3339))
	}
	if ts.After(now.Add(l.skew)) {
		l.metrics.IncVisitRejected(metrics.RejectInvalidTimestamp)
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidTimestamp, ts.Format(time.RFC3339))
	}

	customer, err := l.lookupCustomer(ctx, req.VendorID, req.CustomerID)
	if err != nil {
		l.reject(err)
		return nil, err
	}
	if customer.IsArchived() {
		l.metrics.IncVisitRejected(metrics.RejectNotFound)
		return nil, fmt.Errorf("%w: customer %s is archived", ErrNotFound, customer.ID)
	}

	visit := &model.Visit{
		ID:             model.NewID(),
		VendorID:       req.VendorID,
		CustomerID:     customer.ID,
		Timestamp:      model.NormalizeTimestamp(ts),
		IdempotencyKey: req.IdempotencyKey,
		Source:         source,
		CreatedAt:      model.NormalizeTimestamp(now),
	}

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	stored, created, err := l.store.AppendVisit(sctx, visit)
	if err != nil {
		err = l.storeError("append visit", err)
		l.reject(err)
		return nil, err
	}

	if !created {
		if stored.CustomerID != req.CustomerID {
			l.metrics.IncVisitRejected(metrics.RejectConflict)
			return nil, ErrIdempotencyConflict
		}
		l.metrics.IncVisitReplayed()
		l.logger.Debug("visit replayed",
			"vendor_id", stored.VendorID,
			"customer_id", stored.CustomerID,
			"visit_id", stored.ID,
		)
		return &RecordResult{Visit: stored, Replayed: true}, nil
	}

	l.metrics.IncVisitRecorded(string(source))
	l.logger.Debug("visit recorded",
		"vendor_id", stored.VendorID,
		"customer_id", stored.CustomerID,
		"visit_id", stored.ID,
		"seq", stored.Seq,
	)
	return &RecordResult{Visit: stored}, nil
}

// GetHistory returns the pair's visits ordered by timestamp ascending.
// Each call reads a fresh snapshot.
func (l *Ledger) GetHistory(ctx context.Context, vendorID, customerID string) ([]model.Visit, error) {
	if _, err := l.lookupOwned(ctx, vendorID, customerID); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	visits, err := l.store.ListVisits(sctx, vendorID, customerID)
	if err != nil {
		return nil, l.storeError("list visits", err)
	}
	if visits == nil {
		visits = []model.Visit{}
	}
	// Order ties by Seq whatever order the engine returned them in.
	model.SortVisits(visits)
	return visits, nil
}

// CountVisits counts the pair's visits with since <= Timestamp < until.
func (l *Ledger) CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error) {
	if until.Before(since) {
		return 0, fmt.Errorf("%w: until %s is before since %s", ErrInvalidRange,
			until.Format(time.RFC3339), since.Format(time.RFC3339))
	}
	if _, err := l.lookupOwned(ctx, vendorID, customerID); err != nil {
		return 0, err
	}
	if since.Equal(until) {
		return 0, nil
	}

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	n, err := l.store.CountVisits(sctx, vendorID, customerID, since.UTC(), until.UTC())
	if err != nil {
		return 0, l.storeError("count visits", err)
	}
	return n, nil
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// lookupCustomer resolves a customer for a write.
// Unknown → ErrNotFound, owned by another vendor → ErrNotAuthorized.
func (l *Ledger) lookupCustomer(ctx context.Context, vendorID, customerID string) (*model.Customer, error) {
	if vendorID == "" {
		return nil, ErrNotAuthorized
	}
	if customerID == "" {
		return nil, ErrNotFound
	}

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	customer, err := l.store.GetCustomer(sctx, customerID)
	if err != nil {
		return nil, l.storeError("get customer", err)
	}
	if !customer.BelongsTo(vendorID) {
		return nil, ErrNotAuthorized
	}
	return customer, nil
}

// lookupOwned resolves a customer for a read. A customer of another vendor
// is reported as unknown so reads do not reveal foreign customers.
func (l *Ledger) lookupOwned(ctx context.Context, vendorID, customerID string) (*model.Customer, error) {
	customer, err := l.lookupCustomer(ctx, vendorID, customerID)
	if errors.Is(err, ErrNotAuthorized) {
		return nil, ErrNotFound
	}
	return customer, err
}

// storeError maps a store failure onto the ledger's error kinds.
func (l *Ledger) storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case store.IsDecodeError(err):
		l.logger.Error("malformed record", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	default:
		l.logger.Error("store call failed", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
}

func (l *Ledger) reject(err error) {
	switch {
	case errors.Is(err, ErrNotAuthorized):
		l.metrics.IncVisitRejected(metrics.RejectNotAuthorized)
	case errors.Is(err, ErrNotFound):
		l.metrics.IncVisitRejected(metrics.RejectNotFound)
	case errors.Is(err, ErrStoreUnavailable):
		l.metrics.IncVisitRejected(metrics.RejectStoreUnavailable)
	}
}

func validateIdempotencyKey(key string) error {
	if len(key) > maxIdempotencyKeyLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdempotencyKey, maxIdempotencyKeyLength)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidIdempotencyKey)
		}
	}
	return nil
}
