package domain

import "time"

type Tier string

const (
	TierPremium Tier = "premium"
	TierRegular Tier = "regular"
	TierRisk    Tier = "risk"
)

const (
	DisciplineWeight = 0.6
	LoyaltyWeight    = 0.4

	PremiumThreshold = 80
	RiskThreshold    = 50
)

// TierFor buckets a final score.
func TierFor(finalScore int) Tier {
	switch {
	case finalScore >= PremiumThreshold:
		return TierPremium
	case finalScore < RiskThreshold:
		return TierRisk
	default:
		return TierRegular
	}
}

// RatingScore is a snapshot recomputed from history, never patched in place.
type RatingScore struct {
	UserID          string    `json:"user_id"`
	DisciplineScore float64   `json:"discipline_score"`
	LoyaltyScore    float64   `json:"loyalty_score"`
	FinalScore      int       `json:"final_score"`
	Tier            Tier      `json:"tier"`
	ComputedAt      time.Time `json:"computed_at"`
}

// RequiresApproval reports whether bookings by this user must be confirmed manually.
func (r *RatingScore) RequiresApproval() bool {
	return r.Tier == TierRisk
}
