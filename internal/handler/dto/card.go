package dto

import (
	"time"

	"github.com/punchcard/punchcard/internal/model"
)

// CreateCardRequest represents the request body for issuing a loyalty card.
type CreateCardRequest struct {
	RewardThreshold int `json:"reward_threshold"`
}

// CardResponse represents a loyalty card and its progress.
type CardResponse struct {
	CardID          string     `json:"card_id"`
	CustomerID      string     `json:"customer_id"`
	RewardThreshold int        `json:"reward_threshold"`
	Punches         int        `json:"punches"`
	Remaining       int        `json:"remaining"`
	RewardReady     bool       `json:"reward_ready"`
	Redemptions     int        `json:"redemptions"`
	CycleStart      time.Time  `json:"cycle_start"`
	LastRedeemedAt  *time.Time `json:"last_redeemed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CardListResponse wraps a vendor's loyalty cards.
type CardListResponse struct {
	Data  []CardResponse `json:"data"`
	Count int            `json:"count"`
}

// ToCardResponse converts a CardStatus model to CardResponse DTO.
func ToCardResponse(s *model.CardStatus) *CardResponse {
	return &CardResponse{
		CardID:          s.Card.ID,
		CustomerID:      s.Card.CustomerID,
		RewardThreshold: s.Card.RewardThreshold,
		Punches:         s.Punches,
		Remaining:       s.Remaining(),
		RewardReady:     s.RewardReady,
		Redemptions:     s.Card.Redemptions,
		CycleStart:      s.Card.CycleStart,
		LastRedeemedAt:  s.Card.LastRedeemedAt,
		CreatedAt:       s.Card.CreatedAt,
	}
}

// ToCardListResponse converts a slice of CardStatus models.
func ToCardListResponse(cards []*model.CardStatus) *CardListResponse {
	data := make([]CardResponse, len(cards))
	for i, c := range cards {
		data[i] = *ToCardResponse(c)
	}
	return &CardListResponse{Data: data, Count: len(data)}
}
