package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/punchcard/punchcard/internal/auth"
	"github.com/punchcard/punchcard/internal/handler/dto"
	"github.com/punchcard/punchcard/internal/service"
)

// AccountHandler handles vendor registration, login and profile requests.
type AccountHandler struct {
	svc    *service.VendorService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.VendorService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger.With("component", "handler.account"),
	}
}

// Register handles POST /auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterVendorRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	vendor, err := h.svc.Register(r.Context(), service.RegisterVendorInput{
		Name:         req.Name,
		BusinessName: req.BusinessName,
		Email:        req.Email,
		Password:     req.Password,
		Timezone:     req.Timezone,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToVendorResponse(vendor))
}

// Login handles POST /auth/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("vendor_login", "vendor_id", result.Vendor.ID)

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		Vendor:      dto.ToVendorResponse(result.Vendor),
	})
}

// Me handles GET /auth/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.svc.Profile(r.Context(), auth.VendorIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToVendorResponse(vendor))
}

// UpdateMe handles PUT /auth/me.
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateVendorRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	vendor, err := h.svc.UpdateProfile(r.Context(), auth.VendorIDFromContext(r.Context()), service.UpdateVendorInput{
		Name:         req.Name,
		BusinessName: req.BusinessName,
		Timezone:     req.Timezone,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("vendor_updated", "vendor_id", vendor.ID)
	writeJSON(w, http.StatusOK, dto.ToVendorResponse(vendor))
}

// handleServiceError maps service errors to HTTP responses.
func (h *AccountHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "Name must be 1-100 characters")
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 8 characters")
	case errors.Is(err, service.ErrInvalidTimezone):
		writeError(w, http.StatusBadRequest, "INVALID_TIMEZONE", "Timezone must be an IANA zone name")
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, "VENDOR_NOT_FOUND", "Vendor not found")
	case errors.Is(err, service.ErrNoFields):
		writeError(w, http.StatusBadRequest, "NO_FIELDS", "No fields to update")
	default:
		if !writeLedgerError(w, err) {
			writeInternalError(h.logger, w, r, err)
		}
	}
}
