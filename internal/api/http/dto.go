package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"consolerent-backend/internal/domain"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

type createResourceRequest struct {
	ID          string          `json:"id" validate:"omitempty,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	HourlyPrice decimal.Decimal `json:"hourly_price"`
	DailyPrice  decimal.Decimal `json:"daily_price"`
}

type maintenanceRequest struct {
	Maintenance *bool `json:"maintenance" validate:"required"`
}

type acquireSoftLockRequest struct {
	ResourceID string `json:"resource_id" validate:"required"`
}

type createBookingRequest struct {
	ResourceID string    `json:"resource_id" validate:"required"`
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
}

type completeBookingRequest struct {
	OnTime    bool   `json:"on_time"`
	Condition string `json:"condition" validate:"required,oneof=perfect good damaged"`
	Violation string `json:"violation" validate:"omitempty,oneof=none minor major"`
	Notes     string `json:"notes" validate:"max=1000"`
}

func (c completeBookingRequest) outcome() domain.Outcome {
	violation := domain.RuleViolation(c.Violation)
	if violation == "" {
		violation = domain.ViolationNone
	}
	return domain.Outcome{
		OnTime:    c.OnTime,
		Condition: domain.ReturnCondition(c.Condition),
		Violation: violation,
		Notes:     c.Notes,
	}
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type disputeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type createPenaltyRequest struct {
	BookingID string          `json:"booking_id" validate:"required"`
	Kind      string          `json:"kind" validate:"required,oneof=late_return damage missing_item other"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" validate:"max=500"`
}

type creditRequest struct {
	Credits int `json:"credits" validate:"gt=0"`
}

type createDiscountRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	ResourceID *string         `json:"resource_id"`
	Type       string          `json:"type" validate:"required,oneof=percentage fixed_amount"`
	Value      decimal.Decimal `json:"value"`
	StartsAt   time.Time       `json:"starts_at" validate:"required"`
	EndsAt     time.Time       `json:"ends_at" validate:"required,gtfield=StartsAt"`
	MinHours   int             `json:"min_hours" validate:"gte=0"`
	MaxUsage   *int            `json:"max_usage" validate:"omitempty,gt=0"`
}

func (c createDiscountRequest) discount() *domain.Discount {
	return &domain.Discount{
		Name:       c.Name,
		ResourceID: c.ResourceID,
		Type:       domain.DiscountType(c.Type),
		Value:      c.Value,
		StartsAt:   c.StartsAt.UTC(),
		EndsAt:     c.EndsAt.UTC(),
		MinHours:   c.MinHours,
		MaxUsage:   c.MaxUsage,
		Active:     true,
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return v.Struct(dst)
}

// windowFromQuery parses ?start=&end= as RFC 3339 timestamps.
func windowFromQuery(r *http.Request) (domain.Window, error) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		return domain.Window{}, fmt.Errorf("%w: start must be RFC 3339", domain.ErrInvalidWindow)
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		return domain.Window{}, fmt.Errorf("%w: end must be RFC 3339", domain.ErrInvalidWindow)
	}
	return domain.NewWindow(start, end)
}
