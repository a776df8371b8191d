package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"consolerent-backend/internal/domain"
)

type BookingRepository struct {
	resourceLocks keyedMutex

	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[string]domain.Booking)}
}

// CreateIfAvailable holds the resource's mutex across the overlap scan and the insert.
func (r *BookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking) error {
	unlock := r.resourceLocks.lock(b.ResourceID)
	defer unlock()

	var conflicts []domain.Booking
	r.mu.RLock()
	for _, existing := range r.bookings {
		if existing.ResourceID == b.ResourceID && existing.Status.Active() && existing.Window.Overlaps(b.Window) {
			conflicts = append(conflicts, cloneBooking(existing))
		}
	}
	r.mu.RUnlock()

	if len(conflicts) > 0 {
		sortByStart(conflicts)
		return &domain.SlotUnavailableError{ResourceID: b.ResourceID, Requested: b.Window, Conflicts: conflicts}
	}

	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	r.mu.Lock()
	r.bookings[b.ID] = cloneBooking(*b)
	r.mu.Unlock()
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneBooking(b)
	return &out, nil
}

func (r *BookingRepository) Transition(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from {
		return domain.ErrInvalidTransition
	}
	stored.Status = b.Status
	stored.CancelReason = b.CancelReason
	stored.Outcome = b.Outcome
	stored.CompletedAt = b.CompletedAt
	stored.UpdatedAt = b.UpdatedAt
	r.bookings[b.ID] = cloneBooking(stored)
	return nil
}

func (r *BookingRepository) ListActiveByResource(ctx context.Context, resourceID string) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool {
		return b.ResourceID == resourceID && b.Status.Active()
	}), nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.UserID == userID }), nil
}

func (r *BookingRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.IsOverdue(now) }), nil
}

func (r *BookingRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusConfirmed && !b.Window.End.Before(from) && b.Window.End.Before(to)
	}), nil
}

func (r *BookingRepository) ListRecentCompletedByUser(ctx context.Context, userID string, limit int) ([]domain.Booking, error) {
	completed := r.filter(func(b domain.Booking) bool {
		return b.UserID == userID && b.Status == domain.BookingStatusCompleted
	})
	sort.SliceStable(completed, func(i, j int) bool {
		return completedAt(completed[i]).After(completedAt(completed[j]))
	})
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}
	return completed, nil
}

func (r *BookingRepository) CountCompletedByUser(ctx context.Context, userID string) (int, error) {
	return len(r.filter(func(b domain.Booking) bool {
		return b.UserID == userID && b.Status == domain.BookingStatusCompleted
	})), nil
}

func (r *BookingRepository) filter(keep func(domain.Booking) bool) []domain.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(bookings []domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Window.Start.Equal(bookings[j].Window.Start) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Window.Start.Before(bookings[j].Window.Start)
	})
}

func completedAt(b domain.Booking) time.Time {
	if b.CompletedAt != nil {
		return *b.CompletedAt
	}
	return b.UpdatedAt
}

func cloneBooking(b domain.Booking) domain.Booking {
	if b.Outcome != nil {
		o := *b.Outcome
		b.Outcome = &o
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		b.CompletedAt = &t
	}
	if b.DiscountID != nil {
		id := *b.DiscountID
		b.DiscountID = &id
	}
	return b
}
