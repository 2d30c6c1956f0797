package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/handler/dto"
	"github.com/punchcard/punchcard/internal/ledger"
	"github.com/punchcard/punchcard/internal/middleware"
	"github.com/punchcard/punchcard/internal/model"
	"github.com/punchcard/punchcard/internal/service"
)

// VisitHandler handles punches, scans and visit history.
type VisitHandler struct {
	ledger    *ledger.Ledger
	customers *service.CustomerService
	logger    *slog.Logger
}

// NewVisitHandler creates a new VisitHandler.
func NewVisitHandler(l *ledger.Ledger, customers *service.CustomerService, logger *slog.Logger) *VisitHandler {
	return &VisitHandler{
		ledger:    l,
		customers: customers,
		logger:    logger.With("component", "handler.visit"),
	}
}

// Punch handles POST /vendors/{vendorId}/customers/{customerId}/punch.
// The body is optional. A replayed idempotency key answers 200 with the
// original visit instead of 201.
func (h *VisitHandler) Punch(w http.ResponseWriter, r *http.Request) {
	var req dto.PunchRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	h.record(w, r, ledger.RecordRequest{
		VendorID:   chi.URLParam(r, vendorParam),
		CustomerID: chi.URLParam(r, customerParam),
		Source:     model.SourcePunch,
	}, req.Timestamp, req.IdempotencyKey)
}

// Scan handles POST /vendors/{vendorId}/scans.
func (h *VisitHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req dto.ScanRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	vendorID := chi.URLParam(r, vendorParam)
	customer, err := h.customers.ResolveQR(r.Context(), vendorID, req.Payload)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.record(w, r, ledger.RecordRequest{
		VendorID:   vendorID,
		CustomerID: customer.ID,
		Source:     model.SourceScan,
	}, req.Timestamp, req.IdempotencyKey)
}

func (h *VisitHandler) record(w http.ResponseWriter, r *http.Request, req ledger.RecordRequest, rawTimestamp, bodyKey string) {
	ts, err := parseTimestamp(rawTimestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_TIMESTAMP", "timestamp must be RFC 3339")
		return
	}
	req.Timestamp = ts

	key := r.Header.Get(middleware.IdempotencyKeyHeader)
	if bodyKey != "" {
		if key != "" && key != bodyKey {
			writeError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key header and body disagree")
			return
		}
		key = bodyKey
	}
	req.IdempotencyKey = key

	result, err := h.ledger.Record(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	} else {
		h.logger.Info("visit_recorded",
			"vendor_id", result.Visit.VendorID,
			"customer_id", result.Visit.CustomerID,
			"visit_id", result.Visit.ID,
			"source", result.Visit.Source,
		)
	}
	writeJSON(w, status, dto.ToVisitResponse(result.Visit, result.Replayed))
}

// History handles GET /vendors/{vendorId}/customers/{customerId}/visits.
func (h *VisitHandler) History(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, customerParam)
	visits, err := h.ledger.GetHistory(r.Context(), chi.URLParam(r, vendorParam), customerID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToVisitListResponse(customerID, visits))
}

// Count handles GET /vendors/{vendorId}/customers/{customerId}/visits/count.
func (h *VisitHandler) Count(w http.ResponseWriter, r *http.Request) {
	since, until, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", "since and until must be RFC 3339 timestamps")
		return
	}

	customerID := chi.URLParam(r, customerParam)
	n, err := h.ledger.CountVisits(r.Context(), chi.URLParam(r, vendorParam), customerID, since, until)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VisitCountResponse{
		CustomerID: customerID,
		Since:      since.UTC(),
		Until:      until.UTC(),
		Count:      n,
	})
}

// handleServiceError maps ledger errors to HTTP responses.
func (h *VisitHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidQRPayload):
		writeError(w, http.StatusBadRequest, "INVALID_QR_PAYLOAD", "QR payload could not be decoded")
	default:
		if !writeLedgerError(w, err) {
			writeInternalError(h.logger, w, r, err)
		}
	}
}
