package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type PenaltyKind string

const (
	PenaltyKindLateReturn  PenaltyKind = "late_return"
	PenaltyKindDamage      PenaltyKind = "damage"
	PenaltyKindMissingItem PenaltyKind = "missing_item"
	PenaltyKindOther       PenaltyKind = "other"
)

func (k PenaltyKind) Valid() bool {
	switch k {
	case PenaltyKindLateReturn, PenaltyKindDamage, PenaltyKindMissingItem, PenaltyKindOther:
		return true
	}
	return false
}

type PenaltyStatus string

const (
	PenaltyStatusPending  PenaltyStatus = "pending"
	PenaltyStatusApproved PenaltyStatus = "approved"
	PenaltyStatusPaid     PenaltyStatus = "paid"
	PenaltyStatusWaived   PenaltyStatus = "waived"
	PenaltyStatusDisputed PenaltyStatus = "disputed"
)

// Penalty is a charge against a booking. There is at most one per (booking, kind).
type Penalty struct {
	ID         string          `json:"id"`
	BookingID  string          `json:"booking_id"`
	UserID     string          `json:"user_id"`
	ResourceID string          `json:"resource_id"`
	Kind       PenaltyKind     `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	DaysLate   int             `json:"days_late"`
	Status     PenaltyStatus   `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

var penaltyTransitions = map[PenaltyStatus][]PenaltyStatus{
	PenaltyStatusPending:  {PenaltyStatusApproved, PenaltyStatusPaid, PenaltyStatusWaived, PenaltyStatusDisputed},
	PenaltyStatusApproved: {PenaltyStatusPaid, PenaltyStatusWaived, PenaltyStatusDisputed},
	PenaltyStatusDisputed: {PenaltyStatusApproved, PenaltyStatusWaived},
}

func (p *Penalty) CanTransition(next PenaltyStatus) bool {
	for _, allowed := range penaltyTransitions[p.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Resolved reports whether the penalty reached a terminal status.
func (p *Penalty) Resolved() bool {
	return p.Status == PenaltyStatusPaid || p.Status == PenaltyStatusWaived
}

// DaysLate counts started 24h periods between end and now. Zero if not yet late.
func DaysLate(end, now time.Time) int {
	late := now.Sub(end)
	if late <= 0 {
		return 0
	}
	return int(math.Ceil(late.Hours() / 24))
}

// LateReturnCharge computes ceil(price * rate * daysLate).
func LateReturnCharge(price, rate decimal.Decimal, daysLate int) decimal.Decimal {
	return price.Mul(rate).Mul(decimal.NewFromInt(int64(daysLate))).Ceil()
}
