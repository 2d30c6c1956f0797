package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/punchcard/punchcard/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "punchcard_visits_recorded_total{source=\"punch\"} %d\n", snap.VisitsRecordedPunch)
	writeMetric(w, "punchcard_visits_recorded_total{source=\"scan\"} %d\n", snap.VisitsRecordedScan)
	writeMetric(w, "punchcard_visits_replayed_total %d\n", snap.VisitsReplayed)
	for _, reason := range sortedKeys(snap.VisitsRejected) {
		writeMetric(w, "punchcard_visits_rejected_total{reason=%q} %d\n", reason, snap.VisitsRejected[reason])
	}
	writeMetric(w, "punchcard_record_duration_seconds_count %d\n", snap.RecordDurationCount)
	writeMetric(w, "punchcard_record_duration_seconds_sum %.6f\n", float64(snap.RecordDurationTotalNs)/1e9)

	writeMetric(w, "punchcard_report_duration_seconds_count %d\n", snap.ReportDurationCount)
	writeMetric(w, "punchcard_report_duration_seconds_sum %.6f\n", float64(snap.ReportDurationTotalNs)/1e9)

	writeMetric(w, "punchcard_customers_registered_total %d\n", snap.CustomersRegistered)
	writeMetric(w, "punchcard_rewards_redeemed_total %d\n", snap.RewardsRedeemed)

	writeMetric(w, "punchcard_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "punchcard_logins_total{status=\"failed\"} %d\n", snap.LoginsFailed)

	for _, scope := range sortedKeys(snap.RateLimited) {
		writeMetric(w, "punchcard_rate_limited_total{scope=%q} %d\n", scope, snap.RateLimited[scope])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
