package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	VisitsRecordedPunch   uint64
	VisitsRecordedScan    uint64
	VisitsReplayed        uint64
	VisitsRejected        map[string]uint64
	RecordDurationCount   uint64
	RecordDurationTotalNs int64
	ReportDurationCount   uint64
	ReportDurationTotalNs int64
	CustomersRegistered   uint64
	RewardsRedeemed       uint64
	LoginsSucceeded       uint64
	LoginsFailed          uint64
	RateLimited           map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests and the /metrics endpoint.
type InMemoryRecorder struct {
	visitsRecordedPunch   uint64
	visitsRecordedScan    uint64
	visitsReplayed        uint64
	recordDurationCount   uint64
	recordDurationTotalNs int64
	reportDurationCount   uint64
	reportDurationTotalNs int64
	customersRegistered   uint64
	rewardsRedeemed       uint64
	loginsSucceeded       uint64
	loginsFailed          uint64

	mu          sync.Mutex
	rejected    map[string]uint64
	rateLimited map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		rejected:    make(map[string]uint64),
		rateLimited: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.rejected))
	for k, v := range m.rejected {
		rejected[k] = v
	}
	limited := make(map[string]uint64, len(m.rateLimited))
	for k, v := range m.rateLimited {
		limited[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		VisitsRecordedPunch:   atomic.LoadUint64(&m.visitsRecordedPunch),
		VisitsRecordedScan:    atomic.LoadUint64(&m.visitsRecordedScan),
		VisitsReplayed:        atomic.LoadUint64(&m.visitsReplayed),
		VisitsRejected:        rejected,
		RecordDurationCount:   atomic.LoadUint64(&m.recordDurationCount),
		RecordDurationTotalNs: atomic.LoadInt64(&m.recordDurationTotalNs),
		ReportDurationCount:   atomic.LoadUint64(&m.reportDurationCount),
		ReportDurationTotalNs: atomic.LoadInt64(&m.reportDurationTotalNs),
		CustomersRegistered:   atomic.LoadUint64(&m.customersRegistered),
		RewardsRedeemed:       atomic.LoadUint64(&m.rewardsRedeemed),
		LoginsSucceeded:       atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:          atomic.LoadUint64(&m.loginsFailed),
		RateLimited:           limited,
	}
}

// IncVisitRecorded increments the recorded visit counter for the source.
func (m *InMemoryRecorder) IncVisitRecorded(source string) {
	if source == "scan" {
		atomic.AddUint64(&m.visitsRecordedScan, 1)
		return
	}
	atomic.AddUint64(&m.visitsRecordedPunch, 1)
}

// IncVisitReplayed increments the idempotent replay counter.
func (m *InMemoryRecorder) IncVisitReplayed() {
	atomic.AddUint64(&m.visitsReplayed, 1)
}

// IncVisitRejected increments the rejection counter for reason.
func (m *InMemoryRecorder) IncVisitRejected(reason string) {
	m.mu.Lock()
	m.rejected[reason]++
	m.mu.Unlock()
}

// ObserveRecordDuration records ledger append duration.
func (m *InMemoryRecorder) ObserveRecordDuration(duration time.Duration) {
	atomic.AddUint64(&m.recordDurationCount, 1)
	atomic.AddInt64(&m.recordDurationTotalNs, duration.Nanoseconds())
}

// ObserveReportDuration records analytics query duration.
func (m *InMemoryRecorder) ObserveReportDuration(duration time.Duration) {
	atomic.AddUint64(&m.reportDurationCount, 1)
	atomic.AddInt64(&m.reportDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) IncCustomerRegistered() {
	atomic.AddUint64(&m.customersRegistered, 1)
}

func (m *InMemoryRecorder) IncRewardRedeemed() {
	atomic.AddUint64(&m.rewardsRedeemed, 1)
}

// IncLogin counts login attempts by outcome.
func (m *InMemoryRecorder) IncLogin(success bool) {
	if success {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncRateLimited counts requests rejected by the limiter for scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.mu.Lock()
	m.rateLimited[scope]++
	m.mu.Unlock()
}
