package service

import (
	"context"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository"
)

type availabilityService struct {
	bookingRepo repository.BookingRepository
}

func NewAvailabilityService(bookingRepo repository.BookingRepository) AvailabilityService {
	return &availabilityService{bookingRepo: bookingRepo}
}

// HasConflict is advisory: the answer can go stale before a booking is
// written. CreateIfAvailable repeats the check atomically.
func (s *availabilityService) HasConflict(ctx context.Context, resourceID string, w domain.Window, excludeBookingID string) (bool, []domain.Booking, error) {
	if err := w.Validate(); err != nil {
		return false, nil, err
	}
	active, err := s.bookingRepo.ListActiveByResource(ctx, resourceID)
	if err != nil {
		return false, nil, err
	}
	var conflicts []domain.Booking
	for _, b := range active {
		if b.ID == excludeBookingID {
			continue
		}
		if b.Window.Overlaps(w) {
			conflicts = append(conflicts, b)
		}
	}
	return len(conflicts) > 0, conflicts, nil
}

func (s *availabilityService) CheckAvailability(ctx context.Context, resourceID string, w domain.Window) (*Availability, error) {
	conflict, conflicts, err := s.HasConflict(ctx, resourceID, w, "")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ID)
	}
	return &Availability{
		ResourceID:            resourceID,
		Window:                w,
		Available:             !conflict,
		ConflictingBookingIDs: ids,
	}, nil
}
