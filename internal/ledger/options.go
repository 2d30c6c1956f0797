package ledger

import (
	"log/slog"
	"time"

	"github.com/punchcard/punchcard/internal/metrics"
)

const (
	// DefaultClockSkew is how far into the future a punch timestamp may be.
	DefaultClockSkew = 2 * time.Minute
	// DefaultStoreTimeout bounds every store call.
	DefaultStoreTimeout = 3 * time.Second
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithClockSkew sets the tolerance for future-dated timestamps.
func WithClockSkew(skew time.Duration) Option {
	return func(l *Ledger) {
		if skew >= 0 {
			l.skew = skew
		}
	}
}

// WithStoreTimeout sets the per-call store timeout.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(l *Ledger) {
		if timeout > 0 {
			l.storeTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(l *Ledger) {
		if recorder != nil {
			l.metrics = recorder
		}
	}
}
