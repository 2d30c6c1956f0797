package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/handler/dto"
	"github.com/punchcard/punchcard/internal/service"
)

// Route parameters.
const (
	vendorParam   = "vendorId"
	customerParam = "customerId"
)

// CustomerHandler handles HTTP requests for the customer registry.
type CustomerHandler struct {
	svc    *service.CustomerService
	logger *slog.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc *service.CustomerService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		svc:    svc,
		logger: logger.With("component", "handler.customer"),
	}
}

// Create handles POST /vendors/{vendorId}/customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCustomerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	customer, err := h.svc.Register(r.Context(), chi.URLParam(r, vendorParam), service.CustomerInput{
		Name:  &req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToCustomerResponse(customer))
}

// List handles GET /vendors/{vendorId}/customers.
// Archived customers are listed with ?include_archived=true.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := false
	if raw := r.URL.Query().Get("include_archived"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "include_archived must be a boolean")
			return
		}
		includeArchived = parsed
	}

	customers, err := h.svc.List(r.Context(), chi.URLParam(r, vendorParam), includeArchived)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCustomerListResponse(customers))
}

// Get handles GET /vendors/{vendorId}/customers/{customerId}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.Get(r.Context(), chi.URLParam(r, vendorParam), chi.URLParam(r, customerParam))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCustomerResponse(customer))
}

// Update handles PUT /vendors/{vendorId}/customers/{customerId}.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateCustomerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	customer, err := h.svc.Update(r.Context(), chi.URLParam(r, vendorParam), chi.URLParam(r, customerParam), service.CustomerInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCustomerResponse(customer))
}

// Delete handles DELETE /vendors/{vendorId}/customers/{customerId}.
// The customer is archived; its visit history is kept.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Archive(r.Context(), chi.URLParam(r, vendorParam), chi.URLParam(r, customerParam)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *CustomerHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "Name must be 1-100 characters")
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, service.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "INVALID_PHONE", "Invalid phone number")
	case errors.Is(err, service.ErrNoFields):
		writeError(w, http.StatusBadRequest, "NO_FIELDS", "No fields to update")
	default:
		if !writeLedgerError(w, err) {
			writeInternalError(h.logger, w, r, err)
		}
	}
}
