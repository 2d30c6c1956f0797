package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/analytics"
	"github.com/punchcard/punchcard/internal/handler/dto"
)

// AnalyticsHandler handles repeat-customer analytics requests.
type AnalyticsHandler struct {
	svc    *analytics.Service
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *analytics.Service, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger.With("component", "handler.analytics"),
	}
}

// Weekly handles GET /vendors/{vendorId}/analytics/weekly?week=YYYY-MM-DD.
// Any date of the week may be given; it is read in the vendor's timezone.
// Without ?week the current week is reported.
func (h *AnalyticsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.WeeklyReportForDate(r.Context(), chi.URLParam(r, vendorParam), r.URL.Query().Get("week"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToWeeklyReportResponse(report))
}

// Repeats handles GET /vendors/{vendorId}/analytics/repeats?since=&until=.
func (h *AnalyticsHandler) Repeats(w http.ResponseWriter, r *http.Request) {
	since, until, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", "since and until must be RFC 3339 timestamps")
		return
	}

	vendorID := chi.URLParam(r, vendorParam)
	n, err := h.svc.ComputeRepeats(r.Context(), vendorID, since, until)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RepeatsResponse{
		VendorID:    vendorID,
		Since:       since.UTC(),
		Until:       until.UTC(),
		RepeatCount: n,
	})
}

// handleServiceError maps analytics errors to HTTP responses.
func (h *AnalyticsHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !writeLedgerError(w, err) {
		writeInternalError(h.logger, w, r, err)
	}
}
