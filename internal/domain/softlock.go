package domain

import "time"

// SoftLock is a temporary, advisory claim a user holds on a resource during
// checkout. A user holds at most one. It never blocks bookings, only other
// users' soft locks on the same resource.
type SoftLock struct {
	UserID     string    `json:"user_id"`
	ResourceID string    `json:"resource_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (l *SoftLock) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
