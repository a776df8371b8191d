package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBooking_CanTransition(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusCompleted, false},
		{BookingStatusConfirmed, BookingStatusCompleted, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusConfirmed, false},
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusCancelled, BookingStatusCancelled, false},
	}
	for _, tt := range tests {
		b := &Booking{Status: tt.from}
		assert.Equal(t, tt.want, b.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestBooking_IsOverdue(t *testing.T) {
	b := &Booking{Status: BookingStatusConfirmed, Window: Window{Start: at(0, 0), End: at(1, 0)}}
	assert.False(t, b.IsOverdue(at(1, 0)))
	assert.True(t, b.IsOverdue(at(1, 1)))

	b.Status = BookingStatusPending
	assert.False(t, b.IsOverdue(at(5, 0)))
}

func TestOutcome_Validate(t *testing.T) {
	assert.NoError(t, Outcome{OnTime: true, Condition: ConditionGood, Violation: ViolationNone}.Validate())
	assert.ErrorIs(t, Outcome{Condition: "broken", Violation: ViolationNone}.Validate(), ErrInvalidOutcome)
	assert.ErrorIs(t, Outcome{Condition: ConditionGood}.Validate(), ErrInvalidOutcome)
}

func TestResource_BasePrice(t *testing.T) {
	r := &Resource{HourlyPrice: decimal.NewFromInt(10), DailyPrice: decimal.NewFromInt(150)}

	t.Run("Hourly", func(t *testing.T) {
		price := r.BasePrice(Window{Start: at(0, 10), End: at(0, 13)})
		assert.True(t, decimal.NewFromInt(30).Equal(price), price.String())
	})

	t.Run("PartialHourRoundsUp", func(t *testing.T) {
		w := Window{Start: at(0, 10), End: at(0, 11).Add(1)}
		assert.True(t, decimal.NewFromInt(20).Equal(r.BasePrice(w)))
	})

	t.Run("DailyCheaper", func(t *testing.T) {
		price := r.BasePrice(Window{Start: at(0, 0), End: at(0, 20)})
		assert.True(t, decimal.NewFromInt(150).Equal(price), price.String())
	})

	t.Run("HourlyCheaperPastOneDay", func(t *testing.T) {
		price := r.BasePrice(Window{Start: at(0, 0), End: at(1, 2)})
		assert.True(t, decimal.NewFromInt(260).Equal(price), price.String())
	})

	t.Run("NoDailyRate", func(t *testing.T) {
		hourlyOnly := &Resource{HourlyPrice: decimal.NewFromInt(10)}
		price := hourlyOnly.BasePrice(Window{Start: at(0, 0), End: at(2, 0)})
		assert.True(t, decimal.NewFromInt(480).Equal(price))
	})
}
