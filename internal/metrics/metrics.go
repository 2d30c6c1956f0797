// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Visit rejection reasons.
const (
	RejectNotAuthorized    = "not_authorized"
	RejectNotFound         = "not_found"
	RejectInvalidTimestamp = "invalid_timestamp"
	RejectConflict         = "idempotency_conflict"
	RejectStoreUnavailable = "store_unavailable"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Ledger metrics
	IncVisitRecorded(source string) // source: "punch" or "scan"
	IncVisitReplayed()
	IncVisitRejected(reason string)
	ObserveRecordDuration(duration time.Duration)

	// Analytics metrics
	ObserveReportDuration(duration time.Duration)

	// Account and loyalty metrics
	IncCustomerRegistered()
	IncRewardRedeemed()
	IncLogin(success bool)
	IncRateLimited(scope string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
