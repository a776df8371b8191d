package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "available"
	ResourceStatusRented      ResourceStatus = "rented"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
)

// Resource is a rentable physical unit. Status is a display cache derived from
// bookings and is never consulted for conflict decisions.
type Resource struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	HourlyPrice decimal.Decimal `json:"hourly_price"`
	DailyPrice  decimal.Decimal `json:"daily_price"`
	Status      ResourceStatus  `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BasePrice prices a window by the hour, switching to whole days when that is cheaper.
func (r *Resource) BasePrice(w Window) decimal.Decimal {
	hours := int64(math.Ceil(w.Duration().Hours()))
	if hours < 1 {
		hours = 1
	}
	hourly := r.HourlyPrice.Mul(decimal.NewFromInt(hours))
	if !r.DailyPrice.IsPositive() {
		return hourly
	}
	days := (hours + 23) / 24
	daily := r.DailyPrice.Mul(decimal.NewFromInt(days))
	if r.HourlyPrice.IsPositive() && hourly.LessThan(daily) {
		return hourly
	}
	return daily
}
