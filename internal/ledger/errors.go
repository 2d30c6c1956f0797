package ledger

import "errors"

// Error kinds surfaced to the boundary layer. Match with errors.Is.
var (
	// ErrNotAuthorized means the customer belongs to a different vendor.
	ErrNotAuthorized = errors.New("customer does not belong to vendor")
	// ErrNotFound means the customer is unknown to the vendor.
	ErrNotFound = errors.New("customer not found")
	// ErrInvalidTimestamp means the visit is future-dated beyond the skew tolerance or malformed.
	ErrInvalidTimestamp = errors.New("invalid visit timestamp")
	// ErrInvalidRange means the query window is malformed.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrStoreUnavailable wraps a failure of the persistence collaborator.
	// It is the only kind a caller may safely retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIdempotencyConflict means the idempotency key was already used for another customer.
	ErrIdempotencyConflict = errors.New("idempotency key already used for a different customer")
	// ErrInvalidIdempotencyKey means the key is too long or contains control characters.
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
)

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
