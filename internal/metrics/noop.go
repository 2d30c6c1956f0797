package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncVisitRecorded(source string)               {}
func (n *NoopRecorder) IncVisitReplayed()                            {}
func (n *NoopRecorder) IncVisitRejected(reason string)               {}
func (n *NoopRecorder) ObserveRecordDuration(duration time.Duration) {}
func (n *NoopRecorder) ObserveReportDuration(duration time.Duration) {}
func (n *NoopRecorder) IncCustomerRegistered()                       {}
func (n *NoopRecorder) IncRewardRedeemed()                           {}
func (n *NoopRecorder) IncLogin(success bool)                        {}
func (n *NoopRecorder) IncRateLimited(scope string)                  {}
