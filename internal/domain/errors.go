package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidWindow         = errors.New("invalid window")
	ErrSlotUnavailable       = errors.New("slot unavailable")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrNotFound              = errors.New("not found")
	ErrDuplicatePenalty      = errors.New("penalty already exists")
	ErrDuplicateNotification = errors.New("notification already recorded")
	ErrResourceHeld          = errors.New("resource is held by another user")
	ErrInvalidOutcome        = errors.New("invalid booking outcome")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrDiscountExhausted     = errors.New("discount usage limit reached")
	ErrResourceNotBookable   = errors.New("resource is not bookable")
	ErrInvalidCredits        = errors.New("loyalty credits must be positive")
	ErrInvalidDiscount       = errors.New("invalid discount")
)

// SlotUnavailableError carries the bookings that blocked a candidate window.
type SlotUnavailableError struct {
	ResourceID string
	Requested  Window
	Conflicts  []Booking
}

func (e *SlotUnavailableError) Error() string {
	windows := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		windows = append(windows, c.Window.String())
	}
	return fmt.Sprintf("slot unavailable: resource %s requested %s conflicts with %s",
		e.ResourceID, e.Requested, strings.Join(windows, ", "))
}

func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

// ConflictingIDs lists the ids of the blocking bookings.
func (e *SlotUnavailableError) ConflictingIDs() []string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, c.ID)
	}
	return ids
}
