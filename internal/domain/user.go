package domain

import "time"

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LoyaltyCredits int       `json:"loyalty_credits"`
	CreatedAt      time.Time `json:"created_at"`
}

// TenureDays is the number of whole days since the account was created.
func (u *User) TenureDays(now time.Time) int {
	if now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}
