package service

import (
	"context"
	"time"

	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/model"
)

// Option configures VendorService and CustomerService.
type Option func(*options)

type options struct {
	storeTimeout time.Duration
	now          func() time.Time
}

// WithStoreTimeout sets the per-call store timeout.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.storeTimeout = timeout
		}
	}
}

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{storeTimeout: ledger.DefaultStoreTimeout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// storeCtx bounds one store call.
func (o options) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.storeTimeout)
}

// stamp is the current time as stores keep it.
func (o options) stamp() time.Time {
	return model.NormalizeTimestamp(o.now())
}
