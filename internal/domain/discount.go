package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

// Discount is a catalog entry. A nil ResourceID applies to every resource.
type Discount struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ResourceID *string         `json:"resource_id,omitempty"`
	Type       DiscountType    `json:"type"`
	Value      decimal.Decimal `json:"value"`
	StartsAt   time.Time       `json:"starts_at"`
	EndsAt     time.Time       `json:"ends_at"`
	MinHours   int             `json:"min_hours"`
	MaxUsage   *int            `json:"max_usage,omitempty"`
	UsedCount  int             `json:"used_count"`
	Active     bool            `json:"active"`
}

// Applies reports whether the discount can be used for resourceID and window at now.
func (d *Discount) Applies(resourceID string, w Window, now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ResourceID != nil && *d.ResourceID != resourceID {
		return false
	}
	if now.Before(d.StartsAt) || now.After(d.EndsAt) {
		return false
	}
	if d.MaxUsage != nil && d.UsedCount >= *d.MaxUsage {
		return false
	}
	return w.Duration().Hours() >= float64(d.MinHours)
}

// Saving is the amount taken off basePrice, never more than basePrice.
func (d *Discount) Saving(basePrice decimal.Decimal) decimal.Decimal {
	var saved decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		saved = basePrice.Mul(d.Value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		saved = d.Value
	}
	if saved.GreaterThan(basePrice) {
		return basePrice
	}
	if saved.IsNegative() {
		return decimal.Zero
	}
	return saved.Round(2)
}

// Quote is a priced window.
type Quote struct {
	BasePrice  decimal.Decimal `json:"base_price"`
	Saved      decimal.Decimal `json:"saved"`
	FinalPrice decimal.Decimal `json:"final_price"`
	DiscountID *string         `json:"discount_id,omitempty"`
	Source     string          `json:"source,omitempty"`
}

// BestDiscount picks the applicable catalog entry that saves the most.
func BestDiscount(catalog []Discount, resourceID string, w Window, basePrice decimal.Decimal, now time.Time) (*Discount, decimal.Decimal) {
	var best *Discount
	bestSaved := decimal.Zero
	for i := range catalog {
		d := &catalog[i]
		if !d.Applies(resourceID, w, now) {
			continue
		}
		if saved := d.Saving(basePrice); saved.GreaterThan(bestSaved) {
			best, bestSaved = d, saved
		}
	}
	return best, bestSaved
}
