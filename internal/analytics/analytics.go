// Package analytics computes repeat-customer counts from the visit ledger.
//
// A repeat customer for a window is one with two or more visits whose
// timestamps fall inside that window. Visits before the window are not
// compared, so a customer seen last week and once this week is not a repeat
// this week.
package analytics

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

// RepeatThreshold is the number of in-window visits that makes a repeat customer.
const RepeatThreshold = 2

// VisitCounter counts a customer's visits in a window. *ledger.Ledger implements it.
type VisitCounter interface {
	CountVisits(ctx context.Context, vendorID, customerID string, since, until time.Time) (int, error)
}

// Directory lists the vendor's customers.
type Directory interface {
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
	ListCustomers(ctx context.Context, vendorID string) ([]*model.Customer, error)
}

// Service answers repeat-customer queries. Reads are a snapshot at call time;
// a visit recorded concurrently may or may not be counted.
type Service struct {
	counter      VisitCounter
	directory    Directory
	defaultLoc   *time.Location
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      metrics.Recorder
}

// Config holds optional Service settings.
type Config struct {
	// DefaultLocation is used for vendors without a valid timezone.
	DefaultLocation *time.Location
	StoreTimeout    time.Duration
	// Now picks "this week" when no date is given. Defaults to time.Now.
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// NewService creates an analytics Service.
func NewService(counter VisitCounter, directory Directory, cfg Config) *Service {
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = ledger.DefaultStoreTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return &Service{
		counter:      counter,
		directory:    directory,
		defaultLoc:   cfg.DefaultLocation,
		storeTimeout: cfg.StoreTimeout,
		now:          cfg.Now,
		logger:       cfg.Logger.With("component", "analytics"),
		metrics:      cfg.Metrics,
	}
}

// windowStats aggregates per-customer counts over one window.
type windowStats struct {
	repeats   int
	total     int
	customers int
}

// ComputeRepeats returns how many of the vendor's customers have at least two
// visits in [since, until). A vendor with no customers yields 0.
func (s *Service) ComputeRepeats(ctx context.Context, vendorID string, since, until time.Time) (int, error) {
	if !until.After(since) {
		return 0, fmt.Errorf("%w: until must be after since", ledger.ErrInvalidRange)
	}

	stats, err := s.aggregate(ctx, vendorID, since, until)
	if err != nil {
		return 0, err
	}
	return stats.repeats, nil
}

// WeeklyReport aggregates the vendor's visits over the week containing weekStart.
// weekStart is normalized to Monday 00:00 in the vendor's timezone.
func (s *Service) WeeklyReport(ctx context.Context, vendorID string, weekStart time.Time) (*model.WeeklyReport, error) {
	if weekStart.IsZero() {
		return nil, fmt.Errorf("%w: week start is required", ledger.ErrInvalidRange)
	}

	vendor, err := s.vendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.weeklyReport(ctx, vendor, weekStart)
}

// WeeklyReportForDate reports on the week containing a calendar date
// ("2006-01-02") read in the vendor's timezone. An empty date means this week.
func (s *Service) WeeklyReportForDate(ctx context.Context, vendorID, date string) (*model.WeeklyReport, error) {
	vendor, err := s.vendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	loc := vendor.Location(s.defaultLoc)

	day := s.now().In(loc)
	if date != "" {
		day, err = time.ParseInLocation(DateLayout, date, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: week must be a date like 2006-01-02", ledger.ErrInvalidRange)
		}
	}
	return s.weeklyReport(ctx, vendor, day)
}

func (s *Service) weeklyReport(ctx context.Context, vendor *model.Vendor, weekStart time.Time) (*model.WeeklyReport, error) {
	vendorID := vendor.ID
	loc := vendor.Location(s.defaultLoc)
	start, end := WeekWindow(weekStart, loc)

	stats, err := s.aggregate(ctx, vendorID, start, end)
	if err != nil {
		return nil, err
	}

	return &model.WeeklyReport{
		VendorID:        vendorID,
		WeekStart:       start,
		WeekEnd:         end,
		Timezone:        loc.String(),
		RepeatCount:     stats.repeats,
		TotalVisits:     stats.total,
		UniqueCustomers: stats.customers,
	}, nil
}

// aggregate counts visits per customer over [since, until) through the ledger.
// Archived customers are included because their history still counts.
func (s *Service) aggregate(ctx context.Context, vendorID string, since, until time.Time) (windowStats, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveReportDuration(time.Since(start))
	}()

	customers, err := s.customers(ctx, vendorID)
	if err != nil {
		return windowStats{}, err
	}

	var stats windowStats
	for _, c := range customers {
		n, err := s.counter.CountVisits(ctx, vendorID, c.ID, since, until)
		if err != nil {
			// Removed between list and count.
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}
			return windowStats{}, err
		}
		stats.total += n
		if n > 0 {
			stats.customers++
		}
		if n >= RepeatThreshold {
			stats.repeats++
		}
	}

	s.logger.Debug("window aggregated",
		"vendor_id", vendorID,
		"since", since,
		"until", until,
		"customers", len(customers),
		"repeats", stats.repeats,
	)
	return stats, nil
}

func (s *Service) customers(ctx context.Context, vendorID string) ([]*model.Customer, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	customers, err := s.directory.ListCustomers(sctx, vendorID)
	if err != nil {
		return nil, s.storeError("list customers", err)
	}
	return customers, nil
}

func (s *Service) vendor(ctx context.Context, vendorID string) (*model.Vendor, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	vendor, err := s.directory.GetVendor(sctx, vendorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: vendor %s", ledger.ErrNotFound, vendorID)
		}
		return nil, s.storeError("get vendor", err)
	}
	return vendor, nil
}

func (s *Service) storeError(op string, err error) error {
	if store.IsDecodeError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Error("store call failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ledger.ErrStoreUnavailable, op, err)
}
