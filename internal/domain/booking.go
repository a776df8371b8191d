package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Active reports whether bookings in this status block the window for others.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// ActiveBookingStatuses are the statuses that participate in overlap checks.
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

type ReturnCondition string

const (
	ConditionPerfect ReturnCondition = "perfect"
	ConditionGood    ReturnCondition = "good"
	ConditionDamaged ReturnCondition = "damaged"
)

type RuleViolation string

const (
	ViolationNone  RuleViolation = "none"
	ViolationMinor RuleViolation = "minor"
	ViolationMajor RuleViolation = "major"
)

// Outcome is recorded when a booking completes and feeds the rating engine.
type Outcome struct {
	OnTime    bool            `json:"on_time"`
	Condition ReturnCondition `json:"condition"`
	Violation RuleViolation   `json:"violation"`
	Notes     string          `json:"notes,omitempty"`
}

func (o Outcome) Validate() error {
	switch o.Condition {
	case ConditionPerfect, ConditionGood, ConditionDamaged:
	default:
		return ErrInvalidOutcome
	}
	switch o.Violation {
	case ViolationNone, ViolationMinor, ViolationMajor:
	default:
		return ErrInvalidOutcome
	}
	return nil
}

// Booking is a claim on a resource for a window. It covers both rentals and
// hard reservations. The window never changes after creation.
type Booking struct {
	ID           string          `json:"id"`
	ResourceID   string          `json:"resource_id"`
	UserID       string          `json:"user_id"`
	Window       Window          `json:"window"`
	Status       BookingStatus   `json:"status"`
	Price        decimal.Decimal `json:"price"`
	DiscountID   *string         `json:"discount_id,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	Outcome      *Outcome        `json:"outcome,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving to next.
func (b *Booking) CanTransition(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[b.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOverdue reports whether a confirmed booking has passed its end.
func (b *Booking) IsOverdue(now time.Time) bool {
	return b.Status == BookingStatusConfirmed && b.Window.End.Before(now)
}
