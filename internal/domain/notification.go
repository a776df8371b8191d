package domain

import (
	"fmt"
	"time"
)

type NotificationKind string

const (
	NotificationBookingRequested NotificationKind = "booking_requested"
	NotificationBookingConfirmed NotificationKind = "booking_confirmed"
	NotificationBookingCompleted NotificationKind = "booking_completed"
	NotificationBookingCancelled NotificationKind = "booking_cancelled"
	NotificationPenaltyAssessed  NotificationKind = "penalty_assessed"
	NotificationPenaltyResolved  NotificationKind = "penalty_resolved"
	NotificationRentalReminder   NotificationKind = "rental_reminder"
)

// Notification is a recorded intent to tell a user something. Delivery happens elsewhere.
type Notification struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Kind       NotificationKind  `json:"kind"`
	BookingID  string            `json:"booking_id,omitempty"`
	DedupKey   string            `json:"-"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	IsRead     bool              `json:"is_read"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NotificationDedupKey identifies a once-per-booking intent such as a reminder.
func NotificationDedupKey(bookingID string, kind NotificationKind) string {
	return fmt.Sprintf("%s:%s", bookingID, kind)
}
