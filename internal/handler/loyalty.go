package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/punchcard/punchcard/internal/handler/dto"
	"github.com/punchcard/punchcard/internal/loyalty"
)

// LoyaltyHandler handles loyalty card requests.
type LoyaltyHandler struct {
	svc    *loyalty.Service
	logger *slog.Logger
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(svc *loyalty.Service, logger *slog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		svc:    svc,
		logger: logger.With("component", "handler.loyalty"),
	}
}

// Create handles POST /vendors/{vendorId}/customers/{customerId}/card.
func (h *LoyaltyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCardRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	status, err := h.svc.CreateCard(r.Context(), chi.URLParam(r, vendorParam), chi.URLParam(r, customerParam), req.RewardThreshold)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToCardResponse(status))
}

// Get handles GET /vendors/{vendorId}/customers/{customerId}/card.
func (h *LoyaltyHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.GetCard(r.Context(), chi.URLParam(r, vendorParam), chi.URLParam(r, customerParam))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCardResponse(status))
}

// List handles GET /vendors/{vendorId}/cards.
func (h *LoyaltyHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListCards(r.Context(), chi.URLParam(r, vendorParam))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCardListResponse(cards))
}

// Redeem handles POST /vendors/{vendorId}/customers/{customerId}/card/redeem.
func (h *LoyaltyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Redeem(r.Context(), chi.URLParam(r, vendorParam), chi.URLParam(r, customerParam))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCardResponse(status))
}

// handleServiceError maps loyalty errors to HTTP responses.
func (h *LoyaltyHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, loyalty.ErrInvalidThreshold):
		writeError(w, http.StatusBadRequest, "INVALID_THRESHOLD", "reward_threshold must be between 1 and 1000")
	case errors.Is(err, loyalty.ErrCardExists):
		writeError(w, http.StatusConflict, "CARD_EXISTS", "Customer already has a loyalty card")
	case errors.Is(err, loyalty.ErrCardNotFound):
		writeError(w, http.StatusNotFound, "CARD_NOT_FOUND", "Loyalty card not found")
	case errors.Is(err, loyalty.ErrNotEnoughPunches):
		writeError(w, http.StatusConflict, "NOT_ENOUGH_PUNCHES", "Not enough punches to redeem a reward")
	case errors.Is(err, loyalty.ErrRedeemConflict):
		writeError(w, http.StatusConflict, "REDEEM_CONFLICT", "Card was redeemed concurrently, retry")
	default:
		if !writeLedgerError(w, err) {
			writeInternalError(h.logger, w, r, err)
		}
	}
}
