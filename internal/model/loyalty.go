package model

import "time"

// LoyaltyCard tracks reward progress for one (vendor, customer) pair.
// Progress is derived from the visit ledger, counting visits since CycleStart.
type LoyaltyCard struct {
	ID              string     `json:"id"`
	VendorID        string     `json:"vendor_id"`
	CustomerID      string     `json:"customer_id"`
	RewardThreshold int        `json:"reward_threshold"`
	CycleStart      time.Time  `json:"cycle_start"`
	Redemptions     int        `json:"redemptions"`
	LastRedeemedAt  *time.Time `json:"last_redeemed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CardStatus is a loyalty card together with its computed progress.
type CardStatus struct {
	Card        *LoyaltyCard
	Punches     int
	RewardReady bool
}

// Remaining returns how many punches are still needed for the next reward.
func (s *CardStatus) Remaining() int {
	if s.Punches >= s.Card.RewardThreshold {
		return 0
	}
	return s.Card.RewardThreshold - s.Punches
}
